package testutil

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

// ChurnHeader is the telco churn CSV header, identifier first and target last.
var ChurnHeader = []string{
	"customerID", "gender", "SeniorCitizen", "Partner", "Dependents", "tenure",
	"PhoneService", "MultipleLines", "InternetService", "OnlineSecurity",
	"OnlineBackup", "DeviceProtection", "TechSupport", "StreamingTV",
	"StreamingMovies", "Contract", "PaperlessBilling", "PaymentMethod",
	"MonthlyCharges", "TotalCharges", "Churn",
}

var churnChoices = map[string][]string{
	"gender":           {"Female", "Male"},
	"Partner":          {"No", "Yes"},
	"Dependents":       {"No", "Yes"},
	"PhoneService":     {"No", "Yes"},
	"MultipleLines":    {"No", "No phone service", "Yes"},
	"InternetService":  {"DSL", "Fiber optic", "No"},
	"OnlineSecurity":   {"No", "No internet service", "Yes"},
	"OnlineBackup":     {"No", "No internet service", "Yes"},
	"DeviceProtection": {"No", "No internet service", "Yes"},
	"TechSupport":      {"No", "No internet service", "Yes"},
	"StreamingTV":      {"No", "No internet service", "Yes"},
	"StreamingMovies":  {"No", "No internet service", "Yes"},
	"Contract":         {"Month-to-month", "One year", "Two year"},
	"PaperlessBilling": {"No", "Yes"},
	"PaymentMethod": {
		"Bank transfer (automatic)", "Credit card (automatic)",
		"Electronic check", "Mailed check",
	},
}

// SyntheticChurnRows generates n deterministic churn rows matching
// ChurnHeader. Month-to-month customers with under two years of tenure are
// labelled "Yes"; everyone else "No". Every 50th row leaves TotalCharges
// blank the way the public dataset does for new customers.
func SyntheticChurnRows(n int, seed uint64) [][]string {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([][]string, 0, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(ChurnHeader))
		var contract string
		var tenure int
		var monthly float64
		for j, name := range ChurnHeader {
			switch name {
			case "customerID":
				row[j] = fmt.Sprintf("%04d-SYNTH", i)
			case "SeniorCitizen":
				row[j] = strconv.Itoa(rng.IntN(2))
			case "tenure":
				tenure = rng.IntN(72)
				row[j] = strconv.Itoa(tenure)
			case "MonthlyCharges":
				monthly = 20 + rng.Float64()*100
				row[j] = strconv.FormatFloat(monthly, 'f', 2, 64)
			case "TotalCharges":
				if i%50 == 49 {
					row[j] = " "
					continue
				}
				row[j] = strconv.FormatFloat(monthly*float64(tenure+1), 'f', 2, 64)
			case "Churn":
			default:
				opts := churnChoices[name]
				row[j] = opts[rng.IntN(len(opts))]
				if name == "Contract" {
					contract = row[j]
				}
			}
		}
		label := "No"
		if contract == "Month-to-month" && tenure < 24 {
			label = "Yes"
		}
		row[len(row)-1] = label
		rows = append(rows, row)
	}
	return rows
}

// WriteChurnCSV writes n synthetic rows with a header to a file under
// t.TempDir and returns its path.
func WriteChurnCSV(t *testing.T, n int, seed uint64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "churn.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create dataset file: %v", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(ChurnHeader); err != nil {
		t.Fatalf("failed to write dataset header: %v", err)
	}
	if err := w.WriteAll(SyntheticChurnRows(n, seed)); err != nil {
		t.Fatalf("failed to write dataset rows: %v", err)
	}
	return path
}

// ChurnFeatures returns a feature map for one customer, keyed by column name,
// suitable for a predict request. Overrides replace individual fields.
func ChurnFeatures(overrides map[string]any) map[string]any {
	f := map[string]any{
		"gender":           "Female",
		"SeniorCitizen":    0,
		"Partner":          "Yes",
		"Dependents":       "No",
		"tenure":           1,
		"PhoneService":     "No",
		"MultipleLines":    "No phone service",
		"InternetService":  "DSL",
		"OnlineSecurity":   "No",
		"OnlineBackup":     "Yes",
		"DeviceProtection": "No",
		"TechSupport":      "No",
		"StreamingTV":      "No",
		"StreamingMovies":  "No",
		"Contract":         "Month-to-month",
		"PaperlessBilling": "Yes",
		"PaymentMethod":    "Electronic check",
		"MonthlyCharges":   29.85,
		"TotalCharges":     29.85,
	}
	for k, v := range overrides {
		f[k] = v
	}
	return f
}
