package category

// DefaultEntries returns the built-in destination table.
//
// "Dispatch Overflow <5152>" appears twice: it was moved from Dispatch to CSC
// and the later definition is the one in effect.
func DefaultEntries() []Entry {
	return []Entry{
		{Label: "Dispatch Counter <5150>", Group: "Dispatch"},
		{Label: "Dispatch Counter <5151>", Group: "Dispatch"},
		{Label: "Dispatch Overflow <5152>", Group: "Dispatch"},
		{Label: "Dispatch Night Desk <5160>", Group: "Dispatch"},
		{Label: "MTM Hotline <6100>", Group: "MTM"},
		{Label: "MTM Support <6101>", Group: "MTM"},
		{Label: "MTM Scheduling <6110>", Group: "MTM"},
		{Label: "CSC Front Desk <7000>", Group: "CSC"},
		{Label: "CSC Callback <7001>", Group: "CSC"},
		{Label: "CSC Escalation <7002>", Group: "CSC"},
		{Label: "Dispatch Overflow <5152>", Group: "CSC"},
	}
}

// Default builds the Map for DefaultEntries.
func Default() *Map { return New(DefaultEntries()) }
