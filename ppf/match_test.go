package ppf

import (
	"context"
	"testing"

	"go.viam.com/test"
)

func TestMatchIdentityRecoversIdentityPose(t *testing.T) {
	cloud := asymmetricCloud()
	model, err := Train(cloud, DefaultTrainParams())
	test.That(t, err, test.ShouldBeNil)

	candidates, err := model.Match(context.Background(), cloud, 0.5, 0.05)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldBeGreaterThan, 0)

	clustered := Cluster(candidates, 0.2, model.AngleStep, true)
	test.That(t, len(clustered), test.ShouldBeGreaterThan, 0)
	test.That(t, clustered[0].Angle, test.ShouldAlmostEqual, 0.0, 0.2)
	test.That(t, clustered[0].Translation.Norm(), test.ShouldAlmostEqual, 0.0, 0.2)
}

func TestDetectorRequiresTrainBeforeMatch(t *testing.T) {
	d := NewDetector(nil)
	_, err := d.Match(context.Background(), asymmetricCloud(), 0.5, 0.05)
	test.That(t, err, test.ShouldEqual, ErrNotTrained)
}

func TestDetectorTrainThenMatch(t *testing.T) {
	d := NewDetector(nil)
	cloud := asymmetricCloud()
	test.That(t, d.Train(cloud, DefaultTrainParams()), test.ShouldBeNil)

	poses, err := d.Match(context.Background(), cloud, 0.5, 0.05)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(poses), test.ShouldBeGreaterThan, 0)
}
