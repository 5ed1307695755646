package schema

import "strings"

// Label is a document classification from a closed set.
type Label string

const (
	ClaimForm       Label = "ClaimForm"
	MedicalReport   Label = "MedicalReport"
	DoctorReportMMI Label = "DoctorReportMMI"
	PhysicalTherapy Label = "PhysicalTherapy"
	Prescription    Label = "Prescription"
	CMS1500         Label = "CMS1500"
	Legal           Label = "Legal"

	// Unidentified is used when a document matches none of the known types.
	Unidentified Label = "Unidentified"
)

var documentLabels = []Label{
	ClaimForm,
	MedicalReport,
	DoctorReportMMI,
	PhysicalTherapy,
	Prescription,
	CMS1500,
	Legal,
}

// Labels returns the known document types, excluding Unidentified.
func Labels() []Label {
	out := make([]Label, len(documentLabels))
	copy(out, documentLabels)
	return out
}

// ParseLabel matches s against the closed set, including Unidentified.
func ParseLabel(s string) (Label, bool) {
	s = strings.TrimSpace(s)
	if Label(s) == Unidentified {
		return Unidentified, true
	}
	for _, l := range documentLabels {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}

// String implements fmt.Stringer.
func (l Label) String() string { return string(l) }

// Known reports whether l is one of the document types.
func (l Label) Known() bool {
	for _, d := range documentLabels {
		if d == l {
			return true
		}
	}
	return false
}
