package datagen

import (
	"fmt"
	"math/rand"
	"sort"
	"time"
)

//Entry is one synthetic proxy log line. The anomaly fields never
//reach the exported log file; they feed the ground truth export.
type Entry struct {
	Timestamp      time.Time
	Username       string
	Department     string
	SrcIP          string
	DstIP          string
	Protocol       string
	Method         string
	URL            string
	StatusCode     int
	BytesSent      int
	BytesReceived  int
	Action         string
	URLCategory    string
	ThreatCategory string
	RiskScore      int
	UserAgent      string

	Anomaly     bool
	AnomalyType string
}

//Options drives a generation run
type Options struct {
	Users    int
	Days     int
	Seed     int64
	Beacons  bool
	Start    time.Time
	Location *time.Location
}

//BeaconProfile shapes one injected command and control channel
type BeaconProfile struct {
	Name      string
	IntervalS int
	JitterS   float64
	Days      int
}

//BeaconProfiles covers the detection difficulty range: an obvious
//low-jitter channel, a slow subtle one, and a fast chatty one
var BeaconProfiles = []BeaconProfile{
	{Name: "obvious", IntervalS: 300, JitterS: 4, Days: 5},
	{Name: "subtle", IntervalS: 1800, JitterS: 45, Days: 5},
	{Name: "fast", IntervalS: 60, JitterS: 3, Days: 3},
}

var c2Domains = []string{
	"malware-c2.ru",
	"botnet-cmd.cn",
	"evil-update.net",
	"payload-drop.xyz",
	"c2-handler.io",
}

var (
	httpMethods       = []string{"GET", "POST", "PUT", "DELETE"}
	httpMethodWeights = []float64{0.70, 0.20, 0.07, 0.03}

	protocols       = []string{"HTTPS", "HTTP"}
	protocolWeights = []float64{0.85, 0.15}

	statusCodes   = []int{200, 301, 302, 304, 404, 403}
	statusWeights = []float64{0.85, 0.05, 0.04, 0.03, 0.02, 0.01}

	browsePaths = []string{
		"/", "/home", "/dashboard", "/api/data", "/search",
		"/login", "/profile", "/settings", "/docs", "/index.html",
	}
)

//Generate builds a full synthetic log: baseline traffic for every
//user plus, when enabled, beacon channels injected into the first
//users. Output is sorted chronologically like a real proxy export.
func Generate(opts Options) []Entry {
	rng := rand.New(rand.NewSource(opts.Seed))
	users := BuildCompany(opts.Users, rng)

	entries := normalTraffic(users, opts, rng)
	if opts.Beacons {
		beaconRNG := rand.New(rand.NewSource(opts.Seed + 1))
		for i, profile := range BeaconProfiles {
			if i >= len(users) {
				break
			}
			entries = append(entries, beaconChannel(users[i], opts, profile, beaconRNG)...)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries
}

func normalTraffic(users []*UserProfile, opts Options, rng *rand.Rand) []Entry {
	var entries []Entry
	for _, user := range users {
		for day := 0; day < opts.Days; day++ {
			date := opts.Start.AddDate(0, 0, day)

			// weekends mostly quiet
			if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
				if rng.Float64() > 0.20 {
					continue
				}
			}

			requests := maxInt(10, user.AvgRequestsDay+int(rng.NormFloat64()*float64(user.AvgRequestsDay)*0.20))
			for i := 0; i < requests; i++ {
				entries = append(entries, normalEntry(user, date, rng))
			}
		}
	}
	return entries
}

func normalEntry(user *UserProfile, date time.Time, rng *rand.Rand) Entry {
	domain := user.CommonDomains[rng.Intn(len(user.CommonDomains))]
	perRequestSent := float64(user.AvgBytesSent) / float64(user.AvgRequestsDay)
	perRequestRecv := float64(user.AvgBytesRecv) / float64(user.AvgRequestsDay)

	return Entry{
		Timestamp:      workdayTimestamp(date, user, rng),
		Username:       user.Username,
		Department:     user.Department,
		SrcIP:          user.SrcIP,
		DstIP:          publicIP(rng),
		Protocol:       weightedString(rng, protocols, protocolWeights),
		Method:         weightedString(rng, httpMethods, httpMethodWeights),
		URL:            domain + browsePaths[rng.Intn(len(browsePaths))],
		StatusCode:     weightedInt(rng, statusCodes, statusWeights),
		BytesSent:      maxInt(100, int(perRequestSent+rng.NormFloat64()*perRequestSent*0.30)),
		BytesReceived:  maxInt(500, int(perRequestRecv+rng.NormFloat64()*perRequestRecv*0.30)),
		Action:         "Allowed",
		URLCategory:    user.URLCategories[rng.Intn(len(user.URLCategories))],
		ThreatCategory: "None",
		RiskScore:      rng.Intn(20),
		UserAgent:      user.UserAgents[rng.Intn(len(user.UserAgents))],
	}
}

//workdayTimestamp picks a time mostly inside the user's work hours,
//with an occasional early or late excursion
func workdayTimestamp(date time.Time, user *UserProfile, rng *rand.Rand) time.Time {
	var startMinute, endMinute int
	if rng.Float64() < 0.80 {
		startMinute = user.WorkStart*60 + int(rng.NormFloat64()*float64(user.WorkJitterMin))
		endMinute = user.WorkEnd*60 + int(rng.NormFloat64()*float64(user.WorkJitterMin))
	} else if rng.Float64() < 0.5 {
		startMinute = (user.WorkStart - 2) * 60
		endMinute = user.WorkStart * 60
	} else {
		startMinute = user.WorkEnd * 60
		endMinute = (user.WorkEnd + 2) * 60
	}

	if startMinute < 0 {
		startMinute = 0
	}
	if endMinute > 23*60+59 {
		endMinute = 23*60 + 59
	}
	if endMinute <= startMinute {
		endMinute = startMinute + 60
	}

	minuteOfDay := startMinute + rng.Intn(endMinute-startMinute)
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		minuteOfDay/60, minuteOfDay%60, rng.Intn(60), 0, date.Location(),
	)
}

//beaconChannel emits machine-regular requests to one C2 domain from
//one compromised host
func beaconChannel(user *UserProfile, opts Options, profile BeaconProfile, rng *rand.Rand) []Entry {
	domain := c2Domains[rng.Intn(len(c2Domains))]
	current := time.Date(
		opts.Start.Year(), opts.Start.Month(), opts.Start.Day(),
		0, 5, 0, 0, opts.Start.Location(),
	)
	end := opts.Start.AddDate(0, 0, profile.Days)

	var entries []Entry
	for current.Before(end) {
		jitter := time.Duration(rng.NormFloat64()*profile.JitterS*float64(time.Second) + 0.5)
		entries = append(entries, Entry{
			Timestamp:      current.Add(jitter),
			Username:       user.Username,
			Department:     user.Department,
			SrcIP:          user.SrcIP,
			DstIP:          publicIP(rng),
			Protocol:       "HTTP",
			Method:         "GET",
			URL:            domain + "/check",
			StatusCode:     200,
			BytesSent:      maxInt(1, 512+int(rng.NormFloat64()*30)),
			BytesReceived:  maxInt(1, 128+int(rng.NormFloat64()*15)),
			Action:         "Allowed",
			URLCategory:    "Unknown",
			ThreatCategory: "Malware",
			RiskScore:      70 + rng.Intn(20),
			UserAgent:      user.UserAgents[0],
			Anomaly:        true,
			AnomalyType:    fmt.Sprintf("beaconing_%s", profile.Name),
		})
		current = current.Add(time.Duration(profile.IntervalS) * time.Second)
	}
	return entries
}

func publicIP(rng *rand.Rand) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		1+rng.Intn(222), rng.Intn(255), rng.Intn(255), 1+rng.Intn(253))
}

func weightedString(rng *rand.Rand, values []string, weights []float64) string {
	return values[weightedIndex(rng, weights)]
}

func weightedInt(rng *rand.Rand, values []int, weights []float64) int {
	return values[weightedIndex(rng, weights)]
}

func weightedIndex(rng *rand.Rand, weights []float64) int {
	roll := rng.Float64()
	cumulative := 0.0
	for i, weight := range weights {
		cumulative += weight
		if roll < cumulative {
			return i
		}
	}
	return len(weights) - 1
}
