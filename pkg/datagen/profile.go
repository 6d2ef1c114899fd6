package datagen

import (
	"fmt"
	"math/rand"
)

//department captures the browsing habits shared by a team
type department struct {
	name           string
	domains        []string
	urlCategories  []string
	workStart      int
	workEnd        int
	avgRequestsDay int
	avgBytesSent   int
	avgBytesRecv   int
	userAgents     []string
}

var departments = []department{
	{
		name: "Engineering",
		domains: []string{
			"github.com", "stackoverflow.com", "aws.amazon.com",
			"slack.com", "jira.atlassian.com", "npmjs.com",
		},
		urlCategories:  []string{"Development", "Technology", "Cloud Services"},
		workStart:      8,
		workEnd:        19,
		avgRequestsDay: 300,
		avgBytesSent:   50000,
		avgBytesRecv:   800000,
		userAgents: []string{
			"Mozilla/5.0 (X11; Linux x86_64) Chrome/122.0.0.0",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) Chrome/122.0.0.0",
		},
	},
	{
		name: "Finance",
		domains: []string{
			"quickbooks.intuit.com", "chase.com",
			"slack.com", "office365.com", "expensify.com",
		},
		urlCategories:  []string{"Finance", "Banking", "Business"},
		workStart:      8,
		workEnd:        17,
		avgRequestsDay: 200,
		avgBytesSent:   30000,
		avgBytesRecv:   600000,
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/122.0.0.0",
		},
	},
}

//UserProfile describes one simulated employee's browsing baseline
type UserProfile struct {
	Username       string
	Department     string
	SrcIP          string
	WorkStart      int
	WorkEnd        int
	WorkJitterMin  int
	AvgRequestsDay int
	AvgBytesSent   int
	AvgBytesRecv   int
	CommonDomains  []string
	URLCategories  []string
	UserAgents     []string
}

//BuildCompany creates a deterministic set of employee profiles spread
//round-robin across the departments
func BuildCompany(numUsers int, rng *rand.Rand) []*UserProfile {
	users := make([]*UserProfile, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		dept := departments[i%len(departments)]
		users = append(users, &UserProfile{
			Username:       fmt.Sprintf("user%03d@company.com", i+1),
			Department:     dept.name,
			SrcIP:          fmt.Sprintf("10.%d.%d.%d", rng.Intn(8), rng.Intn(256), 2+rng.Intn(250)),
			WorkStart:      dept.workStart,
			WorkEnd:        dept.workEnd,
			WorkJitterMin:  30,
			AvgRequestsDay: maxInt(50, dept.avgRequestsDay+int(rng.NormFloat64()*30)),
			AvgBytesSent:   maxInt(1000, dept.avgBytesSent+int(rng.NormFloat64()*5000)),
			AvgBytesRecv:   maxInt(10000, dept.avgBytesRecv+int(rng.NormFloat64()*50000)),
			CommonDomains:  dept.domains,
			URLCategories:  dept.urlCategories,
			UserAgents:     dept.userAgents,
		})
	}
	return users
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
