// Package feature holds the transformation contract shared by training and
// serving: the fixed record schema, per-column categorical encoders, the
// captured feature order and the fitted standard scaler.
package feature

// Kind classifies a schema column.
type Kind int

const (
	// Categorical columns carry strings and are label encoded.
	Categorical Kind = iota
	// Numeric columns carry numbers and pass through encoding unchanged.
	Numeric
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Categorical:
		return "categorical"
	case Numeric:
		return "numeric"
	default:
		return "unknown"
	}
}

// Column is a named, typed schema column.
type Column struct {
	Name string
	Kind Kind
}

// Schema is an ordered, fixed set of feature columns plus the target column.
type Schema struct {
	columns []Column
	index   map[string]int
	target  string
}

// NewSchema builds a schema from ordered feature columns and a categorical
// target column name.
func NewSchema(target string, columns ...Column) Schema {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[c.Name] = i
	}
	cols := make([]Column, len(columns))
	copy(cols, columns)
	return Schema{columns: cols, index: idx, target: target}
}

// Columns returns the feature columns in schema order.
func (s Schema) Columns() []Column {
	out := make([]Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the feature column names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Target returns the target column name.
func (s Schema) Target() string { return s.target }

// Column looks up a feature column by name.
func (s Schema) Column(name string) (Column, bool) {
	i, ok := s.index[name]
	if !ok {
		return Column{}, false
	}
	return s.columns[i], true
}

// CategoricalNames returns the names of categorical feature columns.
func (s Schema) CategoricalNames() []string {
	var out []string
	for _, c := range s.columns {
		if c.Kind == Categorical {
			out = append(out, c.Name)
		}
	}
	return out
}

// Column names of the customer churn dataset.
const (
	ColGender           = "gender"
	ColSeniorCitizen    = "SeniorCitizen"
	ColPartner          = "Partner"
	ColDependents       = "Dependents"
	ColTenure           = "tenure"
	ColPhoneService     = "PhoneService"
	ColMultipleLines    = "MultipleLines"
	ColInternetService  = "InternetService"
	ColOnlineSecurity   = "OnlineSecurity"
	ColOnlineBackup     = "OnlineBackup"
	ColDeviceProtection = "DeviceProtection"
	ColTechSupport      = "TechSupport"
	ColStreamingTV      = "StreamingTV"
	ColStreamingMovies  = "StreamingMovies"
	ColContract         = "Contract"
	ColPaperlessBilling = "PaperlessBilling"
	ColPaymentMethod    = "PaymentMethod"
	ColMonthlyCharges   = "MonthlyCharges"
	ColTotalCharges     = "TotalCharges"

	ColChurn      = "Churn"
	ColCustomerID = "customerID"
)

// ChurnSchema is the fixed schema of the telco customer churn dataset.
var ChurnSchema = NewSchema(ColChurn,
	Column{ColGender, Categorical},
	Column{ColSeniorCitizen, Numeric},
	Column{ColPartner, Categorical},
	Column{ColDependents, Categorical},
	Column{ColTenure, Numeric},
	Column{ColPhoneService, Categorical},
	Column{ColMultipleLines, Categorical},
	Column{ColInternetService, Categorical},
	Column{ColOnlineSecurity, Categorical},
	Column{ColOnlineBackup, Categorical},
	Column{ColDeviceProtection, Categorical},
	Column{ColTechSupport, Categorical},
	Column{ColStreamingTV, Categorical},
	Column{ColStreamingMovies, Categorical},
	Column{ColContract, Categorical},
	Column{ColPaperlessBilling, Categorical},
	Column{ColPaymentMethod, Categorical},
	Column{ColMonthlyCharges, Numeric},
	Column{ColTotalCharges, Numeric},
)
