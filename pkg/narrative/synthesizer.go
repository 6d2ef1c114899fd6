package narrative

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/soteria-soc/soteria/config"
)

//Synthesizer fans evidence out to a bounded pool of narrative workers.
//When the configured backend fails for a given anomaly the template
//backend fills in, so every anomaly always gets an explanation.
type Synthesizer struct {
	backend  Backend
	fallback *TemplateBackend
	cache    Cache
	workers  int
	log      *log.Logger
}

//NewSynthesizer wires the configured backend and cache. An unusable
//remote backend degrades to the template backend with a warning
//rather than failing the run.
func NewSynthesizer(conf *config.Config, logger *log.Logger) *Synthesizer {
	var backend Backend = NewTemplateBackend()
	if conf.S.Narrative.Backend == "remote" {
		remote, err := NewRemoteBackend(conf)
		if err != nil {
			logger.WithError(err).Warn("remote narrative backend unavailable, using template backend")
		} else {
			backend = remote
		}
	}

	workers := conf.S.Narrative.MaxConcurrent
	if workers < 1 {
		workers = 1
	}

	return &Synthesizer{
		backend:  backend,
		fallback: NewTemplateBackend(),
		cache:    NewCache(conf),
		workers:  workers,
		log:      logger,
	}
}

//Backend reports the name of the active narrative backend
func (s *Synthesizer) Backend() string {
	return s.backend.Name()
}

//Explain produces the narrative for a single anomaly, consulting the
//cache first and falling back to the template backend on any error
func (s *Synthesizer) Explain(ctx context.Context, evidence *Evidence) *Explanation {
	fingerprint := Fingerprint(evidence)
	if cached, ok := s.cache.Get(ctx, fingerprint); ok {
		return cached
	}

	explanation, err := s.backend.Explain(ctx, evidence)
	if err != nil {
		s.log.WithFields(log.Fields{
			"actor":  evidence.Key.Actor,
			"domain": evidence.Key.Domain,
			"error":  err.Error(),
		}).Warn("narrative backend failed, using template explanation")
		explanation, _ = s.fallback.Explain(ctx, evidence)
	}

	s.cache.Set(ctx, fingerprint, explanation)
	return explanation
}

//Synthesize explains every anomaly, preserving input order. Work is
//spread across at most MaxConcurrent workers.
func (s *Synthesizer) Synthesize(ctx context.Context, evidences []*Evidence) []*Explanation {
	explanations := make([]*Explanation, len(evidences))
	if len(evidences) == 0 {
		return explanations
	}

	indexChannel := make(chan int)
	writeWait := new(sync.WaitGroup)

	for i := 0; i < s.workers; i++ {
		writeWait.Add(1)
		go func() {
			defer writeWait.Done()
			for idx := range indexChannel {
				explanations[idx] = s.Explain(ctx, evidences[idx])
			}
		}()
	}

	for idx := range evidences {
		indexChannel <- idx
	}
	close(indexChannel)
	writeWait.Wait()

	s.log.WithFields(log.Fields{
		"explained": len(evidences),
		"backend":   s.backend.Name(),
	}).Info("narrative synthesis finished")

	return explanations
}
