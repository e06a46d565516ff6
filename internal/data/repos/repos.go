// Package repos is component C's metadata store: one repo per entity,
// each a thin interface plus a GORM-backed implementation threaded
// through dbctx.Context so multi-repo writes can share one transaction.
// Grounded on the teacher's internal/data/repos/jobs/job_run.go.
package repos

import (
	"gorm.io/gorm"

	"github.com/pierdell/mediaforge-backend/internal/platform/logger"
)

// Repos bundles every repo the service layer needs. Constructed once at
// app startup and passed down by reference.
type Repos struct {
	User            UserRepo
	APIKey          APIKeyRepo
	Project         ProjectRepo
	ProjectMember   ProjectMemberRepo
	PromptTemplate  PromptTemplateRepo
	Media           MediaRepo
	MediaSource     MediaSourceRepo
	Dataset         DatasetRepo
	DatasetItem     DatasetItemRepo
	DatasetVersion  DatasetVersionRepo
	Annotation      AnnotationRepo
	AnnotationReview AnnotationReviewRepo
	AgreementScore  AgreementScoreRepo
	TrainingJob     TrainingJobRepo
	JobRun          JobRunRepo
	IndexingJob     IndexingJobRepo
}

// NewRepos constructs every repo against the same *gorm.DB handle.
func NewRepos(db *gorm.DB, log *logger.Logger) *Repos {
	return &Repos{
		User:             NewUserRepo(db, log),
		APIKey:           NewAPIKeyRepo(db, log),
		Project:          NewProjectRepo(db, log),
		ProjectMember:    NewProjectMemberRepo(db, log),
		PromptTemplate:   NewPromptTemplateRepo(db, log),
		Media:            NewMediaRepo(db, log),
		MediaSource:      NewMediaSourceRepo(db, log),
		Dataset:          NewDatasetRepo(db, log),
		DatasetItem:      NewDatasetItemRepo(db, log),
		DatasetVersion:   NewDatasetVersionRepo(db, log),
		Annotation:       NewAnnotationRepo(db, log),
		AnnotationReview: NewAnnotationReviewRepo(db, log),
		AgreementScore:   NewAgreementScoreRepo(db, log),
		TrainingJob:      NewTrainingJobRepo(db, log),
		JobRun:           NewJobRunRepo(db, log),
		IndexingJob:      NewIndexingJobRepo(db, log),
	}
}

// tx resolves the handle a repo method should use: the dbctx transaction
// if one is attached, otherwise the repo's own base handle.
func tx(base *gorm.DB, t *gorm.DB) *gorm.DB {
	if t != nil {
		return t
	}
	return base
}
