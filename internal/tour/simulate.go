package tour

import (
	"fmt"
	"math/rand"
	"strings"

	"arxidemo/internal/domain"
	"arxidemo/internal/store"
)

type storyTemplate struct {
	title       string
	description string
	priority    domain.Priority
	points      int
}

var importedStories = []storyTemplate{
	{"User Authentication", "Implement secure login and logout functionality", domain.PriorityHigh, 8},
	{"Product Catalog", "Display products with search and filtering capabilities", domain.PriorityMedium, 5},
	{"Shopping Cart", "Add items to cart and manage quantities", domain.PriorityHigh, 8},
	{"Payment Processing", "Secure payment integration with multiple providers", domain.PriorityHigh, 13},
	{"Order Management", "Track and manage customer orders", domain.PriorityMedium, 5},
	{"User Profile", "Allow users to manage their account information", domain.PriorityLow, 3},
	{"Review System", "Enable product reviews and ratings", domain.PriorityLow, 5},
}

type testCaseTemplate struct {
	name        string
	description string
	framework   domain.Framework
}

var importedTestCases = []testCaseTemplate{
	{"Login Validation", "Test user login with valid credentials", domain.FrameworkPlaywright},
	{"Product Search", "Test product search functionality", domain.FrameworkCypress},
	{"Add to Cart", "Test adding products to shopping cart", domain.FrameworkSelenium},
	{"Checkout Process", "Test complete checkout workflow", domain.FrameworkPlaywright},
	{"Payment Gateway", "Test payment processing integration", domain.FrameworkCypress},
	{"User Registration", "Test new user registration process", domain.FrameworkSelenium},
}

var importedSuites = []struct{ name, description string }{
	{"Authentication Suite", "All authentication-related tests"},
	{"E-commerce Flow", "Complete shopping experience tests"},
	{"Payment Integration", "Payment processing and security tests"},
}

// importContent fills a freshly imported project with 3-7 stories, 2-4 test
// cases per story and up to three suites. It returns the story and test
// case counts.
func importContent(st *store.Store, projectID string, rng *rand.Rand) (int, int) {
	storyCount := rng.Intn(5) + 3
	var tcIDs []string
	for i := 0; i < storyCount; i++ {
		t := importedStories[i%len(importedStories)]
		story := st.CreateStory(domain.Story{
			Title:       t.title,
			Description: t.description,
			Priority:    t.priority,
			Points:      t.points,
			ProjectID:   projectID,
		})
		perStory := rng.Intn(3) + 2
		for j := 0; j < perStory; j++ {
			t := importedTestCases[(i*perStory+j)%len(importedTestCases)]
			tc := st.CreateTestCase(domain.TestCase{
				Name:        t.name,
				Description: t.description,
				Framework:   t.framework,
				Status:      importedStatus(rng),
				StoryID:     story.ID,
			})
			tcIDs = append(tcIDs, tc.ID)
		}
	}
	for i, t := range importedSuites {
		var members []string
		for n, id := range tcIDs {
			if n%len(importedSuites) == i {
				members = append(members, id)
			}
		}
		if len(members) == 0 {
			continue
		}
		st.CreateTestSuite(domain.TestSuite{
			Name:        t.name,
			Description: t.description,
			TestCaseIDs: members,
			ProjectID:   projectID,
			Status:      domain.StatusActive,
		})
	}
	return storyCount, len(tcIDs)
}

func importedStatus(rng *rand.Rand) domain.TestStatus {
	switch {
	case rng.Float64() > 0.7:
		return domain.TestPassed
	case rng.Float64() > 0.5:
		return domain.TestFailed
	default:
		return domain.TestPending
	}
}

type executionOutcome struct {
	Status   domain.ExecutionStatus
	Passed   int
	Failed   int
	Duration string
}

// completeExecution draws the final numbers of a run. Passed lands in
// roughly a third to three quarters of total, and Passed+Failed == total.
func completeExecution(total int, rng *rand.Rand) executionOutcome {
	passed := int(float64(total) * (0.33 + rng.Float64()*0.4))
	failed := int(float64(total-passed) * rng.Float64())
	final := min(passed, total-failed)
	status := domain.ExecutionFailed
	if rng.Float64() > 0.1 {
		status = domain.ExecutionCompleted
	}
	return executionOutcome{
		Status:   status,
		Passed:   final,
		Failed:   total - final,
		Duration: fmt.Sprintf("%dm", rng.Intn(30)+5),
	}
}

var aiStories = []StoryDraft{
	{"User Authentication System", "Implement secure login and registration with multi-factor authentication", domain.PriorityHigh},
	{"Real-time Dashboard Analytics", "Create interactive charts and metrics for user engagement tracking", domain.PriorityMedium},
	{"Shopping Cart Functionality", "Add and manage items in cart with persistent storage", domain.PriorityMedium},
	{"Payment Processing Integration", "Integrate with multiple payment gateways for secure transactions", domain.PriorityHigh},
	{"Email Notification System", "Automated email alerts for user actions and system events", domain.PriorityLow},
	{"Advanced Search & Filtering", "Implement full-text search with faceted filtering options", domain.PriorityMedium},
}

func draftStory(rng *rand.Rand) StoryDraft {
	return aiStories[rng.Intn(len(aiStories))]
}

var aiTestCases = []struct{ suffix, description string }{
	{"Happy Path Test", "Test successful flow of %s functionality"},
	{"Error Handling Test", "Test error scenarios and validation for %s"},
	{"Edge Cases Test", "Test boundary conditions and edge cases for %s"},
	{"Performance Test", "Test performance and load handling for %s"},
	{"Security Test", "Test security aspects and access controls for %s"},
}

func draftTestCase(storyID, title string, rng *rand.Rand) TestCaseDraft {
	t := aiTestCases[rng.Intn(len(aiTestCases))]
	return TestCaseDraft{
		Name:        title + " - " + t.suffix,
		Description: fmt.Sprintf(t.description, strings.ToLower(title)),
		StoryID:     storyID,
	}
}
