// Package service implements the tutor's use cases on top of the store and the completion stack.
package service

import (
	"math/rand"
	"sync"
	"time"

	"github.com/xiaot623/gogo/tutor/internal/adapter/cms"
	"github.com/xiaot623/gogo/tutor/internal/completion"
	"github.com/xiaot623/gogo/tutor/internal/config"
	"github.com/xiaot623/gogo/tutor/internal/intent"
	"github.com/xiaot623/gogo/tutor/internal/logger"
	"github.com/xiaot623/gogo/tutor/internal/prompts"
	"github.com/xiaot623/gogo/tutor/internal/quiz"
	"github.com/xiaot623/gogo/tutor/internal/repository"
	"github.com/xiaot623/gogo/tutor/internal/topic"
	"github.com/xiaot623/gogo/tutor/policy"
)

type Service struct {
	store        repository.Store
	completer    completion.Completer
	catalog      *prompts.Catalog
	classifier   *intent.Classifier
	extractor    *topic.Extractor
	generator    *quiz.Generator
	cmsClient    *cms.Client
	config       *config.Config
	policyEngine *policy.Engine
	log          *logger.Logger

	locks *keyedMutex
	now   func() time.Time
}

func New(store repository.Store, completer completion.Completer, catalog *prompts.Catalog, cmsClient *cms.Client, cfg *config.Config, policyEngine *policy.Engine, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	generator := quiz.NewGenerator(completer, catalog, quiz.Options{
		BackfillAttempts: cfg.BackfillAttempts,
		PadShortfall:     cfg.PadShortfall,
		Rand:             rand.New(rand.NewSource(time.Now().UnixNano())),
	}, log)
	return &Service{
		store:        store,
		completer:    completer,
		catalog:      catalog,
		classifier:   intent.NewClassifier(completer, catalog, log),
		extractor:    topic.NewExtractor(completer, catalog),
		generator:    generator,
		cmsClient:    cmsClient,
		config:       cfg,
		policyEngine: policyEngine,
		log:          log,
		locks:        newKeyedMutex(),
		now:          time.Now,
	}
}

// keyedMutex serialises work per key. Entries are dropped once nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*refLock{}}
}

// Lock blocks until key is free and returns the matching unlock func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
