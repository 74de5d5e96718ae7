package tour

import (
	"errors"
	"fmt"
	"math/rand"

	"arxidemo/internal/domain"
	"arxidemo/internal/store"
)

var ErrExecutionNotFound = errors.New("execution not found")

var reportNames = []string{
	"User Login Test", "User Registration Test", "Password Reset Test", "Profile Update Test",
	"Product Search Test", "Product Filter Test", "Product Details Test", "Product Comparison Test",
	"Add to Cart Test", "Remove from Cart Test", "Update Cart Quantities Test", "Cart Persistence Test",
	"Checkout Flow Test", "Guest Checkout Test", "Address Validation Test", "Shipping Options Test",
	"Payment Processing Test", "Credit Card Validation Test", "PayPal Integration Test", "Order Confirmation Test",
	"Email Notifications Test", "Inventory Management Test", "Admin Dashboard Test", "Security Headers Test",
}

var reportErrors = []string{
	"Element not found: #submit-button",
	"Timeout waiting for page load",
	"Payment gateway connection failed",
	"Database connection timeout",
	"Invalid response from API",
	"Session expired during test",
	"Network request failed",
	`Assertion failed: Expected "success" but got "error"`,
	"File upload failed",
	"Authentication token expired",
}

// Report generates a fresh per-test breakdown for an execution. Each call
// draws new results; nothing is stored.
func Report(st *store.Store, executionID string, rng *rand.Rand) (domain.TestReport, error) {
	exec, err := st.Execution(executionID)
	if err != nil {
		return domain.TestReport{}, fmt.Errorf("report %s: %w", executionID, ErrExecutionNotFound)
	}
	if rng == nil {
		rng = Env{}.rng()
	}
	results := make([]domain.TestResult, 0, exec.TestCases)
	summary := domain.ReportSummary{Total: exec.TestCases, Duration: exec.Duration}
	for i := 0; i < exec.TestCases; i++ {
		res := domain.TestResult{
			Name:     fmt.Sprintf("Test Case %d", i+1),
			Status:   reportStatus(rng),
			Duration: fmt.Sprintf("%.1fs", rng.Float64()*5+0.5),
		}
		if i < len(reportNames) {
			res.Name = reportNames[i]
		}
		switch res.Status {
		case domain.TestPassed:
			summary.Passed++
		case domain.TestFailed:
			summary.Failed++
			res.Error = reportErrors[rng.Intn(len(reportErrors))]
		default:
			summary.Skipped++
		}
		results = append(results, res)
	}
	return domain.TestReport{
		ID:          "report-" + exec.ID,
		ExecutionID: exec.ID,
		Results:     results,
		Summary:     summary,
	}, nil
}

func reportStatus(rng *rand.Rand) domain.TestStatus {
	switch x := rng.Float64(); {
	case x < 0.33:
		return domain.TestPassed
	case x < 0.66:
		return domain.TestFailed
	default:
		return domain.TestSkipped
	}
}
