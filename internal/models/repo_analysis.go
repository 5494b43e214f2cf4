package models

import "time"

// RepoAnalysis caches the technical analysis of one repository URL.
type RepoAnalysis struct {
	Base            `bson:",inline"`
	RepoURL         string      `json:"repoUrl"         gorm:"type:varchar(512);not null" bson:"repoUrl"`
	AnalyzedAt      time.Time   `json:"analyzedAt"      bson:"analyzedAt"`
	Language        string      `json:"language"        bson:"language"`
	Framework       string      `json:"framework"       bson:"framework"`
	Technologies    StringArray `json:"technologies"    gorm:"type:longtext" bson:"technologies"`
	BuildSystem     string      `json:"buildSystem"     bson:"buildSystem"`
	Summary         string      `json:"summary"         gorm:"type:text" bson:"summary"`
	Structure       string      `json:"structure"       gorm:"type:text" bson:"structure"`
	DeploymentHints string      `json:"deploymentHints" gorm:"type:text" bson:"deploymentHints"`
	Dockerfile      string      `json:"dockerfile"      gorm:"type:longtext" bson:"dockerfile"`
	Ports           []int       `json:"ports"           gorm:"type:longtext;serializer:json" bson:"ports"`
	Environment     StringArray `json:"environment"     gorm:"type:longtext" bson:"environment"`
	Databases       StringArray `json:"databases"       gorm:"type:longtext" bson:"databases"`
}

func (RepoAnalysis) TableName() string { return "repo_analyses" }

func (r *RepoAnalysis) KeyHash() string { return AnalysisKeyHash(r.RepoURL) }

// AnalysisKeyHash hashes a repository URL.
func AnalysisKeyHash(repoURL string) string { return HashKey("repo", repoURL) }
