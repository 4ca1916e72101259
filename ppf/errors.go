package ppf

import "github.com/pkg/errors"

// Error kinds surfaced at the detector's public API boundary. Wrap these
// with errors.Wrapf for context; callers can still match with errors.Is.
var (
	// ErrNotTrained is returned when Match is called before Train.
	ErrNotTrained = errors.New("ppf: detector has not been trained")
	// ErrBadMagic is returned when a persisted Pose3D or PoseCluster3D's
	// leading magic word does not match the expected value.
	ErrBadMagic = errors.New("ppf: bad magic word")
	// ErrShortRead is returned when a binary codec runs out of input
	// before a record is fully decoded.
	ErrShortRead = errors.New("ppf: short read decoding binary record")
)
