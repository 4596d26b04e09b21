package skeleton

// MaxUsers is the capacity of the user table.
const MaxUsers = 10

// State is the tracker's skeleton tracking state for a user.
type State int

const (
	// StateNone means no skeleton is being tracked.
	StateNone State = iota
	// StateCalibrating means the tracker is still fitting the skeleton.
	StateCalibrating
	// StateTracked means all joints are being tracked.
	StateTracked
	// StateCalibrationError means skeleton fitting failed.
	StateCalibrationError
)

// String returns a lowercase state name.
func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateCalibrating:
		return "calibrating"
	case StateTracked:
		return "tracked"
	case StateCalibrationError:
		return "calibration_error"
	default:
		return "unknown"
	}
}

// UserData is the tracker's per-frame report for one user.
type UserData struct {
	ID           int              `json:"id"`
	IsNew        bool             `json:"is_new"`
	IsVisible    bool             `json:"is_visible"`
	IsLost       bool             `json:"is_lost"`
	State        State            `json:"state"`
	CenterOfMass Point3D          `json:"center_of_mass"`
	Joints       [NumJoints]Joint `json:"joints"`
}

// UserRecord is the last known pose of a user, in depth-image pixels.
// A record is only meaningful while Visible is true.
type UserRecord struct {
	Visible      bool               `json:"visible"`
	Joints       [NumJoints]Point2D `json:"joints"`
	CenterOfMass Point3D            `json:"center_of_mass"`
}

// Joint returns the pixel position of a joint.
func (u *UserRecord) Joint(j JointType) Point2D {
	return u.Joints[j]
}

// Users is the fixed user table indexed by user id.
//
// Slots are never cleared. When a user stops being tracked its slot keeps the
// last pose written to it until the same id is tracked again, so the display
// shows the last known pose.
type Users [MaxUsers]UserRecord

// Visible returns the ids of all visible slots in ascending order.
func (u *Users) Visible() []int {
	var ids []int
	for id := range u {
		if u[id].Visible {
			ids = append(ids, id)
		}
	}
	return ids
}
