package ppf

import (
	"encoding/binary"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/ppf3d/hashtable"
	"go.viam.com/ppf3d/internal/murmur"
	"go.viam.com/ppf3d/pointcloud"
	"go.viam.com/ppf3d/spatialmath"
)

const murmurSeed uint32 = 42

// TrainParams configures PPF model training.
type TrainParams struct {
	// SamplingStepRelative is the downsampling cell size as a fraction
	// of the model's bounding-box extent on each axis and, scaled by the
	// bounding-box diameter, the PPF distance quantization step.
	SamplingStepRelative float64
	// DistanceStepRelative is accepted for contract fidelity with the
	// detector's recognized configuration, but training quantizes
	// distance with SamplingStepRelative, exactly as the original
	// surface-matching module does.
	DistanceStepRelative float64
	// NumAngles is the number of angle quantization bins around a full
	// circle (default 30, i.e. 12-degree steps).
	NumAngles int
	// KeepNaNAlphaPairs, when true, inserts pairs whose alpha computation
	// produced NaN with alpha forced to 0, matching the original
	// surface-matching module's behavior. The default (false) skips such
	// pairs entirely.
	KeepNaNAlphaPairs bool
}

// DefaultTrainParams returns the numeric defaults named in the detector's
// recognized configuration.
func DefaultTrainParams() TrainParams {
	return TrainParams{
		SamplingStepRelative: 0.05,
		DistanceStepRelative: 0.05,
		NumAngles:            30,
	}
}

type ppfRow struct {
	f     [4]float64
	alpha float64
}

type hashEntry struct {
	modelIndex int
	rowIndex   int
}

// Model is the immutable product of Train: a sampled model cloud, its PPF
// feature table, and the hash table pointing into that table. It is
// read-only and safe to share across matching workers once Train returns.
type Model struct {
	Sampled      pointcloud.Cloud
	Rows         []ppfRow
	Table        *hashtable.Table
	AngleStep    float64
	DistanceStep float64
	NumAngles    int
	M            int
	Params       TrainParams
}

// Train builds a Model from a model cloud with normals, following the
// five-step procedure in the detector's training contract: bounding box,
// quantized downsampling, per-ordered-pair feature and alpha computation,
// and hash insertion. Returns pointcloud.ErrEmptyCloud if sampling yields
// zero rows.
func Train(model pointcloud.Cloud, params TrainParams) (*Model, error) {
	if params.NumAngles <= 0 {
		params.NumAngles = 30
	}
	if params.SamplingStepRelative <= 0 {
		params.SamplingStepRelative = 0.05
	}

	box, err := pointcloud.ComputeBoundingBox(model)
	if err != nil {
		return nil, err
	}
	diameter := box.Diameter()
	distanceStep := diameter * params.SamplingStepRelative
	angleStep := 2 * math.Pi / float64(params.NumAngles)

	sampled, err := pointcloud.DownsampleQuantized(model, params.SamplingStepRelative, false)
	if err != nil {
		return nil, err
	}
	m := sampled.Size()
	if m == 0 {
		return nil, pointcloud.ErrEmptyCloud
	}
	if !sampled.HasNormals() {
		return nil, errors.New("ppf: model cloud must carry normals for training")
	}

	table := hashtable.NewWithHasher(m*m, identityHash)
	rows := make([]ppfRow, 0, m*m)

	for i := 0; i < m; i++ {
		p1, n1, _ := sampled.At(i)
		for j := 0; j < m; j++ {
			if i == j {
				continue
			}
			p2, n2, _ := sampled.At(j)

			f, ok := computePPFFeatures(p1, n1, p2, n2)
			if !ok {
				continue
			}

			alpha := computeAlpha(p1, n1, p2)
			if math.IsNaN(alpha) {
				if !params.KeepNaNAlphaPairs {
					continue
				}
				alpha = 0
			}

			rowIndex := len(rows)
			rows = append(rows, ppfRow{f: f, alpha: alpha})

			key := hashPPF(f, angleStep, distanceStep)
			table.InsertPreHashed(key, &hashEntry{modelIndex: i, rowIndex: rowIndex})
		}
	}

	return &Model{
		Sampled:      sampled,
		Rows:         rows,
		Table:        table,
		AngleStep:    angleStep,
		DistanceStep: distanceStep,
		NumAngles:    params.NumAngles,
		M:            m,
		Params:       params,
	}, nil
}

// computePPFFeatures returns the point-pair feature (alpha1, alpha2,
// alpha3, d) for the ordered pair (p1, n1) -> (p2, n2). ok is false when
// the pair is degenerate (d below epsilon) and must be skipped.
func computePPFFeatures(p1, n1, p2, n2 r3.Vector) (f [4]float64, ok bool) {
	const eps = 1e-12
	d := p2.Sub(p1)
	norm := d.Norm()
	if norm < eps {
		return f, false
	}
	dHat := d.Mul(1 / norm)

	f[0] = angleBetween(n1, dHat)
	f[1] = angleBetween(n2, dHat)
	f[2] = angleBetween(n1, n2)
	f[3] = norm
	return f, true
}

// angleBetween returns the angle in [0, pi] between a and b, computed via
// atan2(|a x b|, a.b) for better numerical stability near 0 and pi than a
// plain acos(a.b/(|a||b|)), per the original surface-matching module's
// TAngle3 note.
func angleBetween(a, b r3.Vector) float64 {
	return math.Atan2(a.Cross(b).Norm(), a.Dot(b))
}

// computeTransformToX returns the rigid transform (R, t) that sends p to
// the origin and n onto the +x axis. Ported from computeTransformRT in
// the original surface-matching module.
func computeTransformToX(p, n r3.Vector) (*spatialmath.RotationMatrix, r3.Vector) {
	angle := math.Acos(clamp(n.X, -1, 1))

	axis := r3.Vector{X: 0, Y: n.Z, Z: -n.Y}
	if n.Y == 0 && n.Z == 0 {
		axis = r3.Vector{X: 0, Y: 1, Z: 0}
	} else if norm := axis.Norm(); norm > 1e-12 {
		axis = axis.Mul(1 / norm)
	}

	r := spatialmath.AxisAngleToRotation(axis, angle)
	t := r.Apply(p).Mul(-1)
	return r, t
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// computeAlpha returns the model-frame in-plane angle that brings p2 into
// the canonical half-plane after (p1, n1) is sent to (origin, +x). Ported
// from computeAlpha in the original surface-matching module.
func computeAlpha(p1, n1, p2 r3.Vector) float64 {
	r, t := computeTransformToX(p1, n1)
	mptY := t.Y + r.At(1, 0)*p2.X + r.At(1, 1)*p2.Y + r.At(1, 2)*p2.Z
	mptZ := t.Z + r.At(2, 0)*p2.X + r.At(2, 1)*p2.Y + r.At(2, 2)*p2.Z

	alpha := math.Atan2(-mptZ, mptY)
	if math.IsNaN(alpha) {
		return math.NaN()
	}
	if math.Sin(alpha)*mptZ < 0 {
		alpha = -alpha
	}
	return -alpha
}

// hashPPF quantizes f and hashes the four resulting integers with
// MurmurHash3 x86-32, seed 42, matching the HashKey data model exactly.
func hashPPF(f [4]float64, angleStep, distanceStep float64) uint32 {
	d1 := int32(math.Floor(f[0] / angleStep))
	d2 := int32(math.Floor(f[1] / angleStep))
	d3 := int32(math.Floor(f[2] / angleStep))
	d4 := int32(math.Floor(f[3] / distanceStep))

	var buf [16]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(d1))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(d2))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(d3))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(d4))
	return murmur.Hash32(buf[:], murmurSeed)
}

// identityHash maps a key to itself, so bucket placement uses hashPPF's
// MurmurHash3 digest directly rather than re-hashing it, matching the
// original surface-matching module's insert_hashed/get_bucket_hashed
// contract where the caller's hash code is the bucket key.
func identityHash(key uint32) uint32 {
	return key
}
