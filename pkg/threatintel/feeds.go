package threatintel

import (
	"io"
	"net/http"
	"os"

	ritaBL "github.com/activecm/rita-bl"
	ritaBLdb "github.com/activecm/rita-bl/database"
	"github.com/activecm/rita-bl/list"
	"github.com/activecm/rita-bl/sources/lists"
	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
)

//UpdateFeeds builds the threat intel reference collection from the
//configured feeds and returns a handle for checking domains against it
func UpdateFeeds(conf *config.Config, logger *log.Logger) (*ritaBL.Blacklist, error) {
	var feedDatabase ritaBLdb.Handle
	var err error

	// If enabled, verify the MongoDB certificate's hostname and validity,
	// otherwise run a normal request to create a database
	if conf.S.MongoDB.TLS.Enabled {
		feedDatabase, err = ritaBLdb.NewSecureMongoDB(
			conf.S.MongoDB.ConnectionString,
			conf.R.MongoDB.AuthMechanismParsed,
			conf.S.ThreatIntel.Database,
			conf.R.MongoDB.TLS.TLSConfig,
		)
	} else {
		feedDatabase, err = ritaBLdb.NewMongoDB(
			conf.S.MongoDB.ConnectionString,
			conf.R.MongoDB.AuthMechanismParsed,
			conf.S.ThreatIntel.Database,
		)
	}
	if err != nil {
		return nil, err
	}

	feeds := ritaBL.NewBlacklist(
		feedDatabase,
		func(err error) {
			logger.WithFields(log.Fields{
				"db": conf.S.ThreatIntel.Database,
			}).Error(err)
		},
	)

	feeds.SetLists(sourceLists(conf)...)
	feeds.Update()
	return feeds, nil
}

//sourceLists gathers the feeds to check domains against
func sourceLists(conf *config.Config) []list.List {
	var feeds []list.List
	if conf.S.ThreatIntel.UseDNSBH {
		feeds = append(feeds, lists.NewDNSBHList())
	}
	for _, path := range conf.S.ThreatIntel.DomainFeeds {
		feeds = append(feeds, lists.NewLineSeperatedList(
			list.BlacklistedHostnameType,
			path,
			0, // Always reload the data
			tryOpenFileThenURL(path),
		))
	}
	return feeds
}

//Enrich updates the feed reference collection and registers every
//candidate domain the feeds know as malicious
func Enrich(conf *config.Config, logger *log.Logger, registry *Registry, domains []string) error {
	feeds, err := UpdateFeeds(conf, logger)
	if err != nil {
		return err
	}
	before := registry.Len()
	CheckDomains(feeds, registry, domains)
	logger.WithFields(log.Fields{
		"checked": len(domains),
		"matched": registry.Len() - before,
	}).Info("threat intel feeds checked")
	return nil
}

//CheckDomains registers every domain the feeds know as malicious
func CheckDomains(feeds *ritaBL.Blacklist, registry *Registry, domains []string) {
	const batchSize = 100
	for start := 0; start < len(domains); start += batchSize {
		end := start + batchSize
		if end > len(domains) {
			end = len(domains)
		}
		results := feeds.CheckEntries(list.BlacklistedHostnameType, domains[start:end]...)
		for domain, hits := range results {
			if len(hits) > 0 {
				registry.Add(domain)
			}
		}
	}
}

//provide a closure over path to read the file into a line separated feed
func tryOpenFileThenURL(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		_, err := os.Stat(path)
		if err == nil {
			file, err2 := os.Open(path)
			if err2 != nil {
				return nil, err2
			}
			return file, nil
		}
		resp, err := http.Get(path)
		if err != nil {
			return nil, err
		}
		return resp.Body, nil
	}
}
