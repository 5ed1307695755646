package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistryCoversEveryDocumentType(t *testing.T) {
	r := Default()

	assert.ElementsMatch(t, Labels(), r.Labels())
	for _, l := range Labels() {
		s, ok := r.SchemaFor(l)
		require.True(t, ok, l)
		assert.NotEmpty(t, s.Sections, l)
		assert.NotEmpty(t, r.WeightsFor(l), l)
	}
}

func TestUnknownLabelsHaveNoSchemaOrWeights(t *testing.T) {
	r := Default()

	for _, l := range []Label{Unidentified, "Invoice", ""} {
		s, ok := r.SchemaFor(l)
		assert.False(t, ok)
		assert.Nil(t, s)

		w := r.WeightsFor(l)
		assert.NotNil(t, w)
		assert.Empty(t, w)

		_, err := r.Lookup(l)
		assert.ErrorIs(t, err, ErrUnsupportedClassification)
	}
}

func TestDoctorReportDiagnosisIsAList(t *testing.T) {
	s, ok := Default().SchemaFor(DoctorReportMMI)
	require.True(t, ok)

	shapes := map[string]Shape{}
	for _, sec := range s.Sections {
		shapes[sec.Name] = sec.Shape
	}
	assert.Equal(t, ShapeList, shapes["diagnosis_information_section"])
	assert.Equal(t, ShapeObject, shapes["patients_information_section"])
}

func TestWeightsForReturnsCopy(t *testing.T) {
	r := Default()
	w := r.WeightsFor(ClaimForm)
	w["employee_name"] = 42

	assert.Equal(t, 1.0, r.WeightsFor(ClaimForm)["employee_name"])
}

func TestUniformWeightsForCMS1500AndLegal(t *testing.T) {
	r := Default()
	for _, l := range []Label{CMS1500, Legal} {
		w := r.WeightsFor(l)
		require.NotEmpty(t, w, l)
		for field, weight := range w {
			assert.Equal(t, 1.0, weight, "%s.%s", l, field)
		}
	}
}

func TestWeightTableDefault(t *testing.T) {
	w := WeightTable{"employee_name": 1, "ignored": 0}

	assert.Equal(t, 1.0, w.Weight("employee_name"))
	assert.Equal(t, 0.0, w.Weight("ignored"))
	assert.Equal(t, DefaultWeight, w.Weight("unlisted"))
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in   string
		want Label
		ok   bool
	}{
		{"ClaimForm", ClaimForm, true},
		{" CMS1500 ", CMS1500, true},
		{"Unidentified", Unidentified, true},
		{"Unidentified Type", "", false},
		{"claimform", "", false},
		{"Invoice", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLabel(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadRejectsInvalidDefinitions(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "unknown label",
			yaml: "documents:\n  - label: Invoice\n    sections:\n      - name: s\n        fields:\n          - {name: f}\n",
		},
		{
			name: "bad shape",
			yaml: "documents:\n  - label: Prescription\n    sections:\n      - name: s\n        shape: table\n        fields:\n          - {name: f}\n",
		},
		{
			name: "negative weight",
			yaml: "documents:\n  - label: Prescription\n    sections:\n      - name: s\n        fields:\n          - {name: f}\n    weights:\n      f: -1\n",
		},
		{
			name: "duplicate label",
			yaml: "documents:\n  - label: Legal\n    sections:\n      - name: s\n        fields:\n          - {name: f}\n  - label: Legal\n    sections:\n      - name: s\n        fields:\n          - {name: f}\n",
		},
		{
			name: "unknown key",
			yaml: "documents:\n  - label: Legal\n    colour: red\n    sections:\n      - name: s\n        fields:\n          - {name: f}\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidRegistry)
		})
	}
}

func TestOutputFormat(t *testing.T) {
	s, ok := Default().SchemaFor(Prescription)
	require.True(t, ok)

	want := `{
  "prescription_section": {
    "name": {
      "value": "STRING",
      "confidence": FLOAT
    },
    "date": {
      "value": "MM/DD/YYYY",
      "confidence": FLOAT
    }
  }
}`
	assert.Equal(t, want, s.OutputFormat())
}

func TestLegalQuestionsListEnumerations(t *testing.T) {
	s, ok := Default().SchemaFor(Legal)
	require.True(t, ok)

	questions := s.Questions()
	require.Len(t, questions, 9)
	assert.Equal(t, "1. What is the case number?", questions[0])
	assert.Contains(t, questions[4], "'Federal', 'County'")
}

func TestValidate(t *testing.T) {
	r := Default()
	rx, _ := r.SchemaFor(Prescription)
	mmi, _ := r.SchemaFor(DoctorReportMMI)

	tests := []struct {
		name    string
		schema  *Schema
		data    string
		wantErr bool
	}{
		{"valid", rx, `{"prescription_section":{"name":{"value":"Ibuprofen","confidence":0.9}}}`, false},
		{"missing sections allowed", rx, `{}`, false},
		{"extra sections allowed", rx, `{"notes":{"x":1}}`, false},
		{"field not an object", rx, `{"prescription_section":{"name":"Ibuprofen"}}`, true},
		{"field without value", rx, `{"prescription_section":{"name":{"confidence":0.9}}}`, true},
		{"section wrong shape", rx, `{"prescription_section":[]}`, true},
		{"list section", mmi, `{"diagnosis_information_section":[{"enter_icd10_code":{"value":"S93.4"}}]}`, false},
		{"list section as object", mmi, `{"diagnosis_information_section":{"enter_icd10_code":{"value":"S93.4"}}}`, true},
		{"not an object", rx, `[1]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate([]byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
