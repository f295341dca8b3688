package names

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want NormalizedName
	}{
		{"John Smith", NormalizedName{First: "john", Last: "smith", Confident: true}},
		{"  JOHN    SMITH ", NormalizedName{First: "john", Last: "smith", Confident: true}},
		{"SMITH, JOHN", NormalizedName{First: "john", Last: "smith", Confident: true}},
		{"SMITH, JOHN A MR", NormalizedName{First: "john", Middle: "a", Last: "smith", Confident: true}},
		{"Dr. John A. Smith Jr.", NormalizedName{First: "john", Middle: "a", Last: "smith", Confident: true}},
		{"John Smith III", NormalizedName{First: "john", Last: "smith", Confident: true}},
		{"Mrs. Jane Doe-Ray", NormalizedName{First: "jane", Last: "doe-ray", Confident: true}},
		{"DE LA CRUZ, JUAN", NormalizedName{First: "juan", Last: "de la cruz", Confident: true}},
		{"Seán O'Brien", NormalizedName{First: "sean", Last: "obrien", Confident: true}},
		{"J Smith", NormalizedName{First: "j", Last: "smith", FirstIsInitial: true, Confident: true}},
		{"J. Smith", NormalizedName{First: "j", Last: "smith", FirstIsInitial: true, Confident: true}},
		{"SMITH, J ROBERT", NormalizedName{First: "j", Middle: "robert", Last: "smith", FirstIsInitial: true, Confident: true}},
		{"Smith", NormalizedName{Last: "smith"}},
		{"Mr Smith", NormalizedName{Last: "smith"}},
		{"SMITH,", NormalizedName{Last: "smith"}},
		{", JOHN", NormalizedName{First: "john"}},
		{"", NormalizedName{}},
		{"  ...  ", NormalizedName{}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Normalize(tc.in))
		})
	}
}

func TestNormalizeDisplayRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"John Smith",
		"SMITH, JOHN A MR",
		"Dr. John A. Smith Jr.",
		"John Mr Smith",
		"Jr Smith",
		"John Dr",
		"DE LA CRUZ, JUAN CARLOS",
		"DR SMITH, JOHN",
		"SMITH,JR, JOHN",
		"Élodie   Dupont",
		"-- smith -jones-, ana",
		"Smith",
		",",
		"",
		"j.r.r. tolkien",
	}
	for _, in := range inputs {
		n := Normalize(in)
		require.Equal(t, n, Normalize(n.Display()), "display of %q = %q", in, n.Display())
		require.Equal(t, n, Normalize(Normalize(n.Display()).Display()), "second round for %q", in)
	}
}

func TestNormalizeVariantsAgree(t *testing.T) {
	t.Parallel()

	want := Normalize("John Smith")
	for _, v := range []string{"SMITH, JOHN", "smith, john mr", "Mr. John Smith Jr", "JOHN  SMITH"} {
		got := Normalize(v)
		require.Equal(t, want.First, got.First, v)
		require.Equal(t, want.Last, got.Last, v)
	}
}

func TestFold(t *testing.T) {
	t.Parallel()

	require.Equal(t, "new york", Fold("  NEW   YORK "))
	require.Equal(t, "sao paulo", Fold("São Paulo"))
	require.Equal(t, "winston-salem", Fold("Winston-Salem"))
	require.Equal(t, Fold("St. Louis"), Fold(Fold("St. Louis")))
	require.Equal(t, "", Fold(""))
}

func TestFullNameAndInitial(t *testing.T) {
	t.Parallel()

	n := Normalize("SMITH, JOHN ALLEN")
	require.Equal(t, "john smith", n.FullName())
	require.Equal(t, "j", n.Initial())
	require.Equal(t, "", NormalizedName{}.Initial())
}
