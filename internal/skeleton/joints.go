// Package skeleton provides joint types, per-user skeleton records and the
// stick-figure topology used to draw tracked users.
package skeleton

// JointType identifies one of the tracked skeleton joints.
type JointType int

// Joint indices in the order the tracker reports them.
const (
	Head JointType = iota
	Neck
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftHand
	RightHand
	Torso
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftFoot
	RightFoot
	NumJoints
)

var jointNames = [NumJoints]string{
	"head",
	"neck",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_hand",
	"right_hand",
	"torso",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_foot",
	"right_foot",
}

// String returns the snake_case joint name.
func (j JointType) String() string {
	if j < 0 || j >= NumJoints {
		return "unknown"
	}
	return jointNames[j]
}

// Point2D is a position in depth-image pixel coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Point3D is a position in sensor world coordinates, in millimetres.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Joint is a single joint estimate from the tracker.
type Joint struct {
	Position   Point3D `json:"position"`
	Confidence float64 `json:"confidence"`
}

// Bone is a line segment between two joints.
type Bone struct {
	From JointType
	To   JointType
}

// Bones is the fixed stick-figure topology: 14 segments connecting
// anatomically adjacent joints.
var Bones = [...]Bone{
	{Head, Neck},
	{LeftShoulder, RightShoulder},
	{LeftShoulder, Torso},
	{RightShoulder, Torso},

	{LeftShoulder, LeftElbow},
	{LeftElbow, LeftHand},

	{RightShoulder, RightElbow},
	{RightElbow, RightHand},

	{Torso, LeftHip},
	{Torso, RightHip},

	{LeftHip, LeftKnee},
	{LeftKnee, LeftFoot},

	{RightHip, RightKnee},
	{RightKnee, RightFoot},
}
