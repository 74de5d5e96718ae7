package store

import "arxidemo/internal/domain"

// Seed returns a store holding the fixture every demo session starts from.
func Seed(opts ...Option) *Store {
	s := New(opts...)
	s.Teams = []domain.Team{
		{ID: "1", Name: "Frontend Team", Members: 5, Color: "primary"},
		{ID: "2", Name: "Backend Team", Members: 3, Color: "secondary"},
	}
	s.Projects = []domain.Project{
		{ID: "1", Name: "E-commerce App", Source: domain.SourceGitHub, TeamID: "1", StoryCount: 12, TestCount: 45, Status: domain.StatusActive},
		{ID: "2", Name: "Payment System", Source: domain.SourceJira, TeamID: "2", StoryCount: 8, TestCount: 32, Status: domain.StatusActive},
	}
	s.Stories = []domain.Story{
		{ID: "1", Title: "User Authentication", Description: "Implement login/logout functionality", Priority: domain.PriorityHigh, Points: 8, ProjectID: "1"},
		{ID: "2", Title: "Product Catalog", Description: "Display products with filtering", Priority: domain.PriorityMedium, Points: 5, ProjectID: "1"},
		{ID: "3", Title: "Payment Processing", Description: "Handle secure payments", Priority: domain.PriorityHigh, Points: 13, ProjectID: "2"},
	}
	s.TestCases = []domain.TestCase{
		{ID: "1", Name: "Login Test", Description: "Test user login flow", Framework: domain.FrameworkPlaywright, Status: domain.TestPassed, StoryID: "1"},
		{ID: "2", Name: "Product Search", Description: "Test product search functionality", Framework: domain.FrameworkCypress, Status: domain.TestFailed, StoryID: "2"},
		{ID: "3", Name: "Payment Flow", Description: "Test payment processing", Framework: domain.FrameworkSelenium, Status: domain.TestPending, StoryID: "3"},
	}
	s.TestSuites = []domain.TestSuite{
		{ID: "1", Name: "Authentication Suite", Description: "All authentication-related tests", TestCaseIDs: []string{"1"}, ProjectID: "1", Status: domain.StatusActive},
		{ID: "2", Name: "E-commerce Suite", Description: "Complete e-commerce flow tests", TestCaseIDs: []string{"1", "2"}, ProjectID: "1", Status: domain.StatusActive},
		{ID: "3", Name: "Payment Suite", Description: "Payment system tests", TestCaseIDs: []string{"3"}, ProjectID: "2", Status: domain.StatusActive},
	}
	s.Executions = []domain.Execution{
		{ID: "1", Name: "Nightly Regression", TestCases: 25, Status: domain.ExecutionCompleted, Passed: 23, Failed: 2, Duration: "45m", ProjectID: "1"},
		{ID: "2", Name: "Payment Tests", TestCases: 15, Status: domain.ExecutionRunning, Passed: 12, Failed: 0, Duration: "12m", ProjectID: "2"},
		{ID: "3", Name: "Smoke Tests", TestCases: 8, Status: domain.ExecutionFailed, Passed: 5, Failed: 3, Duration: "8m", ProjectID: "1"},
	}
	return s
}
