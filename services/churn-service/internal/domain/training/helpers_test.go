package training_test

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/bibbank/bib/services/churn-service/internal/domain/feature"
	"github.com/bibbank/bib/services/churn-service/internal/domain/training"
)

var choices = map[string][]string{
	feature.ColGender:           {"Female", "Male"},
	feature.ColPartner:          {"No", "Yes"},
	feature.ColDependents:       {"No", "Yes"},
	feature.ColPhoneService:     {"No", "Yes"},
	feature.ColMultipleLines:    {"No", "No phone service", "Yes"},
	feature.ColInternetService:  {"DSL", "Fiber optic", "No"},
	feature.ColOnlineSecurity:   {"No", "No internet service", "Yes"},
	feature.ColOnlineBackup:     {"No", "No internet service", "Yes"},
	feature.ColDeviceProtection: {"No", "No internet service", "Yes"},
	feature.ColTechSupport:      {"No", "No internet service", "Yes"},
	feature.ColStreamingTV:      {"No", "No internet service", "Yes"},
	feature.ColStreamingMovies:  {"No", "No internet service", "Yes"},
	feature.ColContract:         {"Month-to-month", "One year", "Two year"},
	feature.ColPaperlessBilling: {"No", "Yes"},
	feature.ColPaymentMethod:    {"Bank transfer (automatic)", "Credit card (automatic)", "Electronic check", "Mailed check"},
}

// syntheticTable builds a churn table where short month-to-month customers
// churn. Roughly a quarter of the rows are positive.
func syntheticTable(n int, seed uint64) training.RawTable {
	rng := rand.New(rand.NewPCG(seed, seed))
	header := append([]string{feature.ColCustomerID}, feature.ChurnSchema.Names()...)
	header = append(header, feature.ColChurn)

	t := training.RawTable{Header: header}
	for i := 0; i < n; i++ {
		row := make([]string, len(header))
		row[0] = fmt.Sprintf("%04d-SYNTH", i)
		var contract string
		var tenure int
		for j, name := range header[1 : len(header)-1] {
			col, _ := feature.ChurnSchema.Column(name)
			var cell string
			switch {
			case col.Kind == feature.Categorical:
				opts := choices[name]
				cell = opts[rng.IntN(len(opts))]
			case name == feature.ColSeniorCitizen:
				cell = strconv.Itoa(rng.IntN(2))
			case name == feature.ColTenure:
				tenure = rng.IntN(72)
				cell = strconv.Itoa(tenure)
			default:
				cell = strconv.FormatFloat(20+rng.Float64()*100, 'f', 2, 64)
			}
			if name == feature.ColContract {
				contract = cell
			}
			row[j+1] = cell
		}
		churn := "No"
		if contract == "Month-to-month" && tenure < 24 {
			churn = "Yes"
		}
		row[len(row)-1] = churn
		t.Rows = append(t.Rows, row)
	}
	return t
}

func quickConfig() training.Config {
	cfg := training.DefaultConfig()
	for i := range cfg.Fit.Members {
		cfg.Fit.Members[i].Rounds = 20
	}
	return cfg
}

func rowsOf(labels ...int) []training.Row {
	out := make([]training.Row, len(labels))
	for i, y := range labels {
		out[i] = training.Row{X: []float64{float64(i)}, Y: y}
	}
	return out
}
