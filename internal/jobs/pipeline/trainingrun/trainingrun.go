// Package trainingrun drives component I's training job state machine
// (spec.md §4.I) through its worker-observable transitions. The trainer
// itself is out of scope (spec.md §1 Non-goals); this handler simulates
// epoch progress deterministically so the lifecycle, not the model, is
// what's under test.
package trainingrun

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"gorm.io/datatypes"

	"github.com/pierdell/mediaforge-backend/internal/data/repos"
	types "github.com/pierdell/mediaforge-backend/internal/domain"
	"github.com/pierdell/mediaforge-backend/internal/jobs/runtime"
	"github.com/pierdell/mediaforge-backend/internal/platform/dbctx"
)

// Handler implements runtime.Handler for job type "training_run".
type Handler struct {
	Repos *repos.Repos
}

func New(r *repos.Repos) *Handler {
	return &Handler{Repos: r}
}

func (h *Handler) Type() string { return types.JobTypeTrainingRun }

type hyperparameters struct {
	Epochs       int     `json:"epochs"`
	BatchSize    int     `json:"batch_size"`
	LearningRate float64 `json:"learning_rate"`
	Optimizer    string  `json:"optimizer"`
	WeightDecay  float64 `json:"weight_decay"`
	Scheduler    string  `json:"scheduler"`
}

func (h *Handler) Run(rc *runtime.Context) error {
	jobID, ok := rc.PayloadUUID("training_job_id")
	if !ok {
		err := fmt.Errorf("trainingrun: missing training_job_id in payload")
		rc.Fail("load_job", err)
		return err
	}

	dbc := dbctx.Context{Ctx: rc.Ctx}
	job, err := h.Repos.TrainingJob.GetByID(dbc, jobID)
	if err != nil {
		rc.Fail("load_job", err)
		return err
	}

	var hp hyperparameters
	_ = json.Unmarshal(job.Config, &hp)
	if hp.Epochs <= 0 {
		hp.Epochs = 10
	}

	now := time.Now()
	ok1, err := h.Repos.TrainingJob.CompareAndTransition(dbc, job.ID, types.TrainingQueued, map[string]interface{}{
		"status":     types.TrainingPreparing,
		"started_at": now,
	})
	if err != nil {
		rc.Fail("prepare", err)
		return err
	}
	if !ok1 {
		// Already moved on (e.g. cancelled) by another actor; nothing to do.
		rc.Succeed("noop", map[string]any{"reason": "job not in queued state"})
		return nil
	}
	rc.Progress("preparing", 5, "preparing training data")

	ok2, err := h.Repos.TrainingJob.CompareAndTransition(dbc, job.ID, types.TrainingPreparing, map[string]interface{}{
		"status":       types.TrainingTraining,
		"total_epochs": hp.Epochs,
	})
	if err != nil {
		rc.Fail("train", err)
		return err
	}
	if !ok2 {
		rc.Succeed("noop", map[string]any{"reason": "job left preparing state"})
		return nil
	}

	for epoch := 1; epoch <= hp.Epochs; epoch++ {
		trainLoss := simulatedLoss(epoch, hp.Epochs, 1.0)
		valLoss := simulatedLoss(epoch, hp.Epochs, 1.15)

		updated, err := h.Repos.TrainingJob.CompareAndTransition(dbc, job.ID, types.TrainingTraining, map[string]interface{}{
			"status":        types.TrainingTraining,
			"current_epoch": epoch,
			"train_loss":    trainLoss,
			"val_loss":      valLoss,
		})
		if err != nil {
			rc.Fail("train", err)
			return err
		}
		if !updated {
			rc.Succeed("noop", map[string]any{"reason": "job left training state"})
			return nil
		}

		pct := 5 + int(float64(epoch)/float64(hp.Epochs)*80)
		rc.Progress("training", pct, fmt.Sprintf("epoch %d/%d train_loss=%.4f val_loss=%.4f", epoch, hp.Epochs, trainLoss, valLoss))
	}

	ok3, err := h.Repos.TrainingJob.CompareAndTransition(dbc, job.ID, types.TrainingTraining, map[string]interface{}{
		"status": types.TrainingEvaluating,
	})
	if err != nil {
		rc.Fail("evaluate", err)
		return err
	}
	if !ok3 {
		rc.Succeed("noop", map[string]any{"reason": "job left training state"})
		return nil
	}
	rc.Progress("evaluating", 90, "evaluating final checkpoint")

	metrics := map[string]float64{
		"final_train_loss": simulatedLoss(hp.Epochs, hp.Epochs, 1.0),
		"final_val_loss":   simulatedLoss(hp.Epochs, hp.Epochs, 1.15),
		"accuracy":         0.5 + 0.4*float64(hp.Epochs)/float64(hp.Epochs+5),
	}
	metricsJSON, _ := json.Marshal(metrics)
	completedAt := time.Now()
	modelPath := fmt.Sprintf("models/%s/%s.pt", job.ProjectID.String(), job.ID.String())

	ok4, err := h.Repos.TrainingJob.CompareAndTransition(dbc, job.ID, types.TrainingEvaluating, map[string]interface{}{
		"status":       types.TrainingCompleted,
		"metrics":      datatypes.JSON(metricsJSON),
		"completed_at": completedAt,
	})
	if err != nil {
		rc.Fail("complete", err)
		return err
	}
	if !ok4 {
		rc.Succeed("noop", map[string]any{"reason": "job left evaluating state"})
		return nil
	}

	rc.Succeed("done", map[string]any{
		"model_path": modelPath,
		"metrics":    metrics,
	})
	return nil
}

// simulatedLoss decays from base toward ~0.05 across total epochs, a
// deterministic stand-in for an actual training curve.
func simulatedLoss(epoch, total int, base float64) float64 {
	if total <= 0 {
		total = 1
	}
	frac := float64(epoch) / float64(total)
	return 0.05 + base*math.Exp(-3*frac)
}
