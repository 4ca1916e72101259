package ppf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/ppf3d/spatialmath"
)

const (
	pose3DMagic      uint32 = 0x00001DF9 // 7673
	poseClusterMagic uint32 = 0x0081281D // 8462597
)

// Pose3D is a candidate or refined 6-DoF pose: its matrix, quaternion, and
// translation representations are kept consistent by the update methods,
// along with bookkeeping fields from the stage that produced it. Ported
// from the Pose3D class in the original surface-matching module.
type Pose3D struct {
	Matrix      *spatialmath.Pose
	Quaternion  quat.Number
	Translation r3.Vector
	Angle       float64
	NumVotes    int
	ModelIndex  int
	Residual    float64
	Alpha       float64
}

// NewPose3D returns an unset Pose3D carrying the given bookkeeping fields;
// one of the UpdateFromXxx methods must be called before its matrix,
// quaternion, or translation fields are meaningful.
func NewPose3D(alpha float64, modelIndex, numVotes int) *Pose3D {
	return &Pose3D{Alpha: alpha, ModelIndex: modelIndex, NumVotes: numVotes, Matrix: spatialmath.IdentityPose()}
}

// UpdateFromMatrix sets p's pose from a 4x4 row-major matrix, re-deriving
// the quaternion, translation, and angle views.
func (p *Pose3D) UpdateFromMatrix(m *spatialmath.Pose) {
	p.Matrix = m
	p.Quaternion = m.Rotation().Quaternion()
	p.Translation = m.Translation()
	p.Angle = rotationAngle(m.Rotation())
}

// UpdateFromRT sets p's pose from a rotation matrix and translation.
func (p *Pose3D) UpdateFromRT(r *spatialmath.RotationMatrix, t r3.Vector) {
	p.UpdateFromMatrix(spatialmath.NewPoseFromRT(r, t))
}

// UpdateFromQuatT sets p's pose from a unit quaternion and translation.
func (p *Pose3D) UpdateFromQuatT(q quat.Number, t r3.Vector) {
	p.UpdateFromRT(spatialmath.QuatToRotationMatrix(q), t)
}

// AppendIncremental left-multiplies delta onto p's current pose: p's new
// pose is delta * p. Mirrors Pose3D::appendPose in the original
// surface-matching module.
func (p *Pose3D) AppendIncremental(delta *spatialmath.Pose) {
	p.UpdateFromMatrix(delta.Compose(p.Matrix))
}

// rotationAngle returns acos((trace(R)-1)/2), clamped to [0, pi].
func rotationAngle(r *spatialmath.RotationMatrix) float64 {
	trace := r.At(0, 0) + r.At(1, 1) + r.At(2, 2)
	cos := (trace - 1) / 2
	if cos > 1 {
		cos = 1
	}
	if cos < -1 {
		cos = -1
	}
	return math.Acos(cos)
}

// Clone returns a deep copy of p.
func (p *Pose3D) Clone() *Pose3D {
	cp := *p
	m := *p.Matrix
	cp.Matrix = &m
	return &cp
}

// String formats p for logging, mirroring Pose3D::printPose.
func (p *Pose3D) String() string {
	return fmt.Sprintf(
		"Pose3D(votes=%d modelIndex=%d angle=%.4f t=(%.4f,%.4f,%.4f) residual=%.6f)",
		p.NumVotes, p.ModelIndex, p.Angle, p.Translation.X, p.Translation.Y, p.Translation.Z, p.Residual,
	)
}

// WriteTo encodes p in the binary wire format documented in the
// detector's external interfaces: magic word, angle, vote/index counts,
// the 16-entry pose matrix, the 3-entry translation, the 4-entry
// quaternion, and the residual, all little-endian.
func (p *Pose3D) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, 0, 4+8+4+4+16*8+3*8+4*8+8)
	buf = appendU32(buf, pose3DMagic)
	buf = appendF64(buf, p.Angle)
	buf = appendI32(buf, int32(p.NumVotes))
	buf = appendI32(buf, int32(p.ModelIndex))
	for _, v := range p.Matrix.Array() {
		buf = appendF64(buf, v)
	}
	buf = appendF64(buf, p.Translation.X)
	buf = appendF64(buf, p.Translation.Y)
	buf = appendF64(buf, p.Translation.Z)
	buf = appendF64(buf, p.Quaternion.Real)
	buf = appendF64(buf, p.Quaternion.Imag)
	buf = appendF64(buf, p.Quaternion.Jmag)
	buf = appendF64(buf, p.Quaternion.Kmag)
	buf = appendF64(buf, p.Residual)

	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom decodes a Pose3D previously written by WriteTo. Returns
// ErrBadMagic if the leading word does not match, or ErrShortRead if the
// stream ends before a full record is read.
func (p *Pose3D) ReadFrom(r io.Reader) (int64, error) {
	const recordLen = 4 + 8 + 4 + 4 + 16*8 + 3*8 + 4*8 + 8
	buf := make([]byte, recordLen)
	n, err := io.ReadFull(r, buf[:4])
	if err == nil {
		if binary.LittleEndian.Uint32(buf[0:4]) != pose3DMagic {
			return int64(n), ErrBadMagic
		}
		var rest int
		rest, err = io.ReadFull(r, buf[4:])
		n += rest
	}
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return int64(n), ErrShortRead
		}
		return int64(n), err
	}

	off := 4
	p.Angle, off = readF64(buf, off)
	var numVotes, modelIndex int32
	numVotes, off = readI32(buf, off)
	modelIndex, off = readI32(buf, off)
	p.NumVotes = int(numVotes)
	p.ModelIndex = int(modelIndex)

	var arr [16]float64
	for i := range arr {
		arr[i], off = readF64(buf, off)
	}
	p.Matrix = spatialmath.NewPoseFromMatrix(arr)

	p.Translation.X, off = readF64(buf, off)
	p.Translation.Y, off = readF64(buf, off)
	p.Translation.Z, off = readF64(buf, off)
	p.Quaternion.Real, off = readF64(buf, off)
	p.Quaternion.Imag, off = readF64(buf, off)
	p.Quaternion.Jmag, off = readF64(buf, off)
	p.Quaternion.Kmag, off = readF64(buf, off)
	p.Residual, _ = readF64(buf, off)

	return int64(n), nil
}

// PoseCluster3D is an ordered, owned list of Pose3D with a monotone-
// accumulated vote total.
type PoseCluster3D struct {
	ID         int
	Poses      []*Pose3D
	TotalVotes int
}

// NewPoseCluster3D returns an empty cluster with the given id.
func NewPoseCluster3D(id int) *PoseCluster3D {
	return &PoseCluster3D{ID: id}
}

// Add appends p to the cluster and adds its votes to TotalVotes.
func (pc *PoseCluster3D) Add(p *Pose3D) {
	pc.Poses = append(pc.Poses, p)
	pc.TotalVotes += p.NumVotes
}

// WriteTo encodes pc in the binary wire format: magic word, id, vote
// total, pose count, then each Pose3D in WriteTo's format.
func (pc *PoseCluster3D) WriteTo(w io.Writer) (int64, error) {
	header := make([]byte, 0, 16)
	header = appendU32(header, poseClusterMagic)
	header = appendI32(header, int32(pc.ID))
	header = appendI32(header, int32(pc.TotalVotes))
	header = appendI32(header, int32(len(pc.Poses)))

	n, err := w.Write(header)
	total := int64(n)
	if err != nil {
		return total, err
	}
	for _, p := range pc.Poses {
		wn, err := p.WriteTo(w)
		total += wn
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadFrom decodes a PoseCluster3D previously written by WriteTo.
func (pc *PoseCluster3D) ReadFrom(r io.Reader) (int64, error) {
	header := make([]byte, 16)
	n, err := io.ReadFull(r, header)
	if err != nil {
		return int64(n), ErrShortRead
	}

	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != poseClusterMagic {
		return int64(n), ErrBadMagic
	}

	id, _ := readI32(header, 4)
	totalVotes, _ := readI32(header, 8)
	numPoses, _ := readI32(header, 12)

	pc.ID = int(id)
	pc.TotalVotes = int(totalVotes)
	pc.Poses = make([]*Pose3D, 0, numPoses)

	total := int64(n)
	for i := int32(0); i < numPoses; i++ {
		p := &Pose3D{}
		pn, err := p.ReadFrom(r)
		total += pn
		if err != nil {
			return total, err
		}
		pc.Poses = append(pc.Poses, p)
	}
	return total, nil
}

func appendU32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendI32(buf []byte, v int32) []byte {
	return appendU32(buf, uint32(v))
}

func appendF64(buf []byte, v float64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	return append(buf, b[:]...)
}

func readF64(buf []byte, off int) (float64, int) {
	bits := binary.LittleEndian.Uint64(buf[off : off+8])
	return math.Float64frombits(bits), off + 8
}

func readI32(buf []byte, off int) (int32, int) {
	return int32(binary.LittleEndian.Uint32(buf[off : off+4])), off + 4
}
