package models

import "time"

// DeploymentGuide caches a platform specific deployment guide.
type DeploymentGuide struct {
	Base               `bson:",inline"`
	RepoURL            string      `json:"repoUrl"            gorm:"type:varchar(512);not null" bson:"repoUrl"`
	Platform           string      `json:"platform"           gorm:"type:varchar(32);not null" bson:"platform"`
	GeneratedAt        time.Time   `json:"generatedAt"        bson:"generatedAt"`
	Dockerfile         string      `json:"dockerfile"         gorm:"type:longtext" bson:"dockerfile"`
	Guide              string      `json:"guide"              gorm:"type:longtext" bson:"guide"`
	Tips               StringArray `json:"tips"               gorm:"type:longtext" bson:"tips"`
	EnvironmentExample string      `json:"environmentExample" gorm:"type:text" bson:"environmentExample"`
}

func (DeploymentGuide) TableName() string { return "deployment_guides" }

func (g *DeploymentGuide) KeyHash() string {
	return GuideKey{RepoURL: g.RepoURL, Platform: g.Platform}.Hash()
}

// GuideKey identifies a guide by repository and target platform.
type GuideKey struct {
	RepoURL  string
	Platform string
}

func (k GuideKey) Hash() string { return HashKey("guide", k.RepoURL, k.Platform) }

// GuideKeyHash adapts GuideKey.Hash for store constructors.
func GuideKeyHash(k GuideKey) string { return k.Hash() }
