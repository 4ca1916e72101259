package ppf

import (
	"context"

	"go.uber.org/zap"

	"go.viam.com/ppf3d/pointcloud"
)

// SearchParams configures matching and clustering behavior, mirroring
// PPF3DDetector::SetSearchParams in the original surface-matching module.
type SearchParams struct {
	NumPoses              int
	PositionThreshold     float64
	RotationThreshold     float64
	MinMatchScore         float64
	UseWeightedClustering bool
}

// DefaultSearchParams returns search params derived from the model's own
// training parameters, mirroring the negative-threshold "use the training
// default" convention in the original module's SetSearchParams.
func DefaultSearchParams(trainParams TrainParams) SearchParams {
	return SearchParams{
		NumPoses:              5,
		PositionThreshold:     trainParams.SamplingStepRelative,
		RotationThreshold:     2 * 3.14159265358979 / float64(trainParams.NumAngles),
		MinMatchScore:         0.5,
		UseWeightedClustering: true,
	}
}

// Detector is the facade exposed to callers: train once, set search
// parameters, then match repeatedly against scene clouds.
type Detector struct {
	logger *zap.SugaredLogger
	model  *Model
	search SearchParams
}

// NewDetector returns an untrained Detector that logs through logger. A
// nil logger is replaced with zap's no-op logger.
func NewDetector(logger *zap.SugaredLogger) *Detector {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Detector{logger: logger}
}

// Train builds the detector's model from a model cloud, per Train.
func (d *Detector) Train(model pointcloud.Cloud, params TrainParams) error {
	m, err := Train(model, params)
	if err != nil {
		return err
	}
	d.model = m
	d.search = DefaultSearchParams(params)
	d.logger.Infow("trained ppf model", "sampledPoints", m.M, "numRows", len(m.Rows))
	return nil
}

// SetSearchParams overrides the detector's matching/clustering
// parameters. Call after Train.
func (d *Detector) SetSearchParams(params SearchParams) {
	d.search = params
}

// Match runs the matching and clustering stages against scene, returning
// poses ranked by descending vote mass. Returns ErrNotTrained if called
// before Train.
func (d *Detector) Match(
	ctx context.Context,
	scene pointcloud.Cloud,
	relativeSceneSampleStep, relativeSceneDistance float64,
) ([]*Pose3D, error) {
	if d.model == nil {
		return nil, ErrNotTrained
	}

	candidates, err := d.model.Match(ctx, scene, relativeSceneSampleStep, relativeSceneDistance)
	if err != nil {
		return nil, err
	}
	d.logger.Debugw("raw candidates", "count", len(candidates))

	clustered := Cluster(candidates, d.search.PositionThreshold, d.search.RotationThreshold, d.search.UseWeightedClustering)
	if d.search.NumPoses > 0 && len(clustered) > d.search.NumPoses {
		clustered = clustered[:d.search.NumPoses]
	}
	return clustered, nil
}
