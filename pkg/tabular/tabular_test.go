package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnavshah/internship-allocator-go/pkg/models"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffid, name ,skills\n" +
		"c1,Asha,\"python, sql\"\n" +
		"\n" +
		"c2,Ravi\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []map[string]string{
		{"id": "c1", "name": "Asha", "skills": "python, sql"},
		{"id": "c2", "name": "Ravi", "skills": ""},
	}, rows)
}

func TestReadCSV_Empty(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ReadCSV(strings.NewReader("id,name\n"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadCSV_Malformed(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("id,name\nc1,\"unterminated\n"))
	assert.Error(t, err)
}

func TestWriteRecords(t *testing.T) {
	var out strings.Builder
	err := WriteRecords(&out, []models.AllocationRecord{{
		Candidate:         "Asha",
		Internship:        "Data, Analytics",
		Score:             48.5,
		Reason:            "Strong skill match",
		Category:          "SC",
		Gender:            "Female",
		Area:              "Rural",
		PastParticipation: "No",
	}})
	require.NoError(t, err)

	assert.Equal(t,
		"Candidate,Internship,Score,Reason,Category,Gender,Area,Past Participation\n"+
			"Asha,\"Data, Analytics\",48.5,Strong skill match,SC,Female,Rural,No\n",
		out.String())
}

func TestStringify(t *testing.T) {
	rows := Stringify([]map[string]any{{
		"id":       "c1",
		"capacity": float64(3),
		"past":     true,
		"skills":   []any{"python", "sql"},
		"gender":   nil,
	}})

	assert.Equal(t, []map[string]string{{
		"id":       "c1",
		"capacity": "3",
		"past":     "true",
		"skills":   "python,sql",
		"gender":   "",
	}}, rows)
}
