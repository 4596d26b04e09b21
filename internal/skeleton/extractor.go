package skeleton

import "log"

// Tracker is the part of the tracking provider the extractor needs.
type Tracker interface {
	// StartSkeletonTracking asks the tracker to begin fitting a skeleton for a user.
	StartSkeletonTracking(id int) error

	// ConvertJointToDepth projects a world position onto the depth image plane.
	ConvertJointToDepth(p Point3D) (float64, float64, error)
}

// UpdateResult summarises one Update call.
type UpdateResult struct {
	Started []int
	Updated []int
	Skipped int
}

// Extractor writes tracked user skeletons into a user table.
type Extractor struct {
	tracker Tracker
}

// NewExtractor creates an Extractor that projects joints with the given tracker.
func NewExtractor(t Tracker) *Extractor {
	return &Extractor{tracker: t}
}

// Update processes the users reported for one frame.
//
// New users get skeleton tracking started. Users whose skeleton is tracked
// and whose id is below MaxUsers-1 have their slot's visibility and joints
// overwritten. The last slot is never written. Everyone else is skipped and
// their slot keeps its previous contents.
func (e *Extractor) Update(users *Users, data []UserData) UpdateResult {
	var res UpdateResult

	for i := range data {
		user := &data[i]

		if user.IsNew {
			if err := e.tracker.StartSkeletonTracking(user.ID); err != nil {
				log.Printf("start skeleton tracking for user %d: %v", user.ID, err)
			} else {
				res.Started = append(res.Started, user.ID)
			}
			continue
		}

		if user.State != StateTracked || user.ID < 0 || user.ID >= MaxUsers-1 {
			res.Skipped++
			continue
		}

		rec := &users[user.ID]
		rec.Visible = user.IsVisible
		rec.CenterOfMass = user.CenterOfMass

		for j := Head; j < NumJoints; j++ {
			x, y, err := e.tracker.ConvertJointToDepth(user.Joints[j].Position)
			if err != nil {
				// keep the previous position for this joint
				continue
			}
			rec.Joints[j] = Point2D{X: x, Y: y}
		}

		res.Updated = append(res.Updated, user.ID)
	}

	return res
}
