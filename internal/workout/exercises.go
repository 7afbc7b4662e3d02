package workout

// Exercise describes one supported movement and the body joints the pose
// worker tracks for it.
type Exercise struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Instructions  string   `json:"instructions"`
	TrackedJoints []string `json:"tracking_points"`
}

var catalog = []Exercise{
	{
		ID:          1,
		Name:        "Dumbbell Curl",
		Description: "A classic bicep exercise that targets the muscles in your upper arm.",
		Instructions: "Stand with feet shoulder-width apart, hold dumbbells at your sides " +
			"with palms forward, keep elbows close to your torso and curl the weights up " +
			"towards your shoulders, then lower with control.",
		TrackedJoints: []string{
			"left_shoulder", "left_elbow", "left_wrist",
			"right_shoulder", "right_elbow", "right_wrist",
		},
	},
	{
		ID:          2,
		Name:        "Pull-up",
		Description: "A compound exercise that primarily targets your back and biceps muscles.",
		Instructions: "Grip the bar slightly wider than shoulder-width, hang with arms fully " +
			"extended, pull yourself up until your chin is over the bar and lower back down " +
			"with control.",
		TrackedJoints: []string{
			"left_shoulder", "left_elbow", "left_wrist",
			"right_shoulder", "right_elbow", "right_wrist",
			"left_hip", "right_hip",
		},
	},
	{
		ID:          3,
		Name:        "Push-up",
		Description: "A fundamental bodyweight exercise that works your chest, shoulders, and triceps.",
		Instructions: "Start in a plank with hands slightly wider than shoulders, keep your " +
			"body in a straight line, lower until your chest nearly touches the ground and " +
			"push back up.",
		TrackedJoints: []string{
			"left_shoulder", "left_elbow", "left_wrist",
			"right_shoulder", "right_elbow", "right_wrist",
			"left_hip", "right_hip", "left_knee", "right_knee",
		},
	},
}

// Exercises returns the static exercise catalog.
func Exercises() []Exercise {
	out := make([]Exercise, len(catalog))
	copy(out, catalog)
	return out
}
