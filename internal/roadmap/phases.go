package roadmap

// Phase is a named block of consecutive roadmap months.
type Phase struct {
	Name    string
	Months  int
	Project string
}

// Phases is the fixed job-readiness progression.
var Phases = []Phase{
	{Name: "Foundation", Months: 2, Project: "Mini practice project"},
	{Name: "Core Skills", Months: 3, Project: "Role-specific mini project"},
	{Name: "Advanced Projects", Months: 2, Project: "Major real-world project"},
	{Name: "Job Preparation", Months: 1, Project: "Resume + mock interviews"},
}

// TotalMonths is the length of the roadmap.
func TotalMonths() int {
	total := 0
	for _, p := range Phases {
		total += p.Months
	}
	return total
}

// PhaseFor returns the phase a month index belongs to. ok is false once the
// roadmap is complete or for indexes below 1.
func PhaseFor(month int) (Phase, bool) {
	if month < 1 {
		return Phase{}, false
	}
	total := 0
	for _, p := range Phases {
		total += p.Months
		if month <= total {
			return p, true
		}
	}
	return Phase{}, false
}
