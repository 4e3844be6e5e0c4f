package models

// Profile is a named set of extra arguments for the extraction tool
type Profile struct {
	Name string
	Args []string
}

// DefaultProfile adds no arguments on top of the baseline
var DefaultProfile = Profile{Name: "default"}

// Attempt is one (URL variant, profile) pair tried while probing
type Attempt struct {
	URL      string
	Platform Platform
	Profile  Profile
	Referer  string
}
