package services_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/ls-lnb/tg-bookmarks/internal/core/domain"
	"github.com/ls-lnb/tg-bookmarks/internal/core/ports/driven/mocks"
	"github.com/ls-lnb/tg-bookmarks/internal/core/services"
)

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeSyncScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

type runResult struct {
	run *domain.SyncRun
	err error
}

// syncWorld is the per-scenario state
type syncWorld struct {
	remote       *mocks.MockRemoteSource
	store        *mocks.MockLocalStore
	orchestrator *services.SyncOrchestrator

	run *domain.SyncRun
	err error

	release chan struct{}
	first   chan runResult
}

func initializeSyncScenario(sc *godog.ScenarioContext) {
	w := &syncWorld{
		remote: mocks.NewMockRemoteSource(),
		store:  mocks.NewMockLocalStore(),
	}
	w.orchestrator = services.NewSyncOrchestrator(services.SyncOrchestratorConfig{
		Remote: w.remote,
		Store:  w.store,
		Runs:   mocks.NewMockSyncRunStore(),
	})

	sc.Step(`^the remote channel has topic (\d+) "([^"]*)" with messages "([^"]*)"$`, w.remoteTopic)
	sc.Step(`^the remote position is (\d+)$`, w.remotePosition)
	sc.Step(`^the mirror has bookmarks "([^"]*)" in topic (\d+)$`, w.mirrorBookmarks)
	sc.Step(`^the mirror has no sync cursor$`, w.noCursor)
	sc.Step(`^the mirror has sync cursor (\d+)$`, w.cursor)
	sc.Step(`^the remote difference deletes message (\d+) at position (\d+)$`, w.differenceDelete)
	sc.Step(`^iteration of topic (\d+) fails after (\d+) messages$`, w.iterationFails)
	sc.Step(`^a sync run is triggered$`, w.trigger)
	sc.Step(`^the run succeeds$`, w.runSucceeds)
	sc.Step(`^the run fails$`, w.runFails)
	sc.Step(`^the run strategy is "([^"]*)"$`, w.runStrategy)
	sc.Step(`^every topic was fully enumerated$`, w.allEnumerated)
	sc.Step(`^topic (\d+) contains bookmarks "([^"]*)"$`, w.topicContains)
	sc.Step(`^the sync cursor is (\d+)$`, w.cursorIs)
	sc.Step(`^a sync run is in progress$`, w.runInProgress)
	sc.Step(`^another sync run is triggered$`, w.trigger)
	sc.Step(`^it reports already running$`, w.alreadyRunning)
	sc.Step(`^the first run succeeds once released$`, w.firstSucceeds)
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (w *syncWorld) remoteTopic(topicID int64, title, ids string) error {
	parsed, err := parseIDs(ids)
	if err != nil {
		return err
	}
	msgs := make([]*domain.RemoteMessage, 0, len(parsed))
	for _, id := range parsed {
		msgs = append(msgs, mocks.Msg(id, topicID, fmt.Sprintf("message %d", id)))
	}
	w.remote.AddTopic(topicID, title, msgs...)
	return nil
}

func (w *syncWorld) remotePosition(pts int64) error {
	w.remote.Position = pts
	return nil
}

func (w *syncWorld) mirrorBookmarks(ids string, topicID int64) error {
	parsed, err := parseIDs(ids)
	if err != nil {
		return err
	}
	for _, id := range parsed {
		w.store.SeedBookmark(&domain.Bookmark{ID: id, TopicID: topicID, Text: "seeded", ContentType: domain.ContentTypeText})
	}
	return nil
}

func (w *syncWorld) noCursor() error {
	if _, ok := w.store.CursorPts(); ok {
		return errors.New("expected no sync cursor")
	}
	return nil
}

func (w *syncWorld) cursor(pts int64) error {
	w.store.SeedCursor(pts)
	return nil
}

func (w *syncWorld) differenceDelete(id, pts int64) error {
	w.remote.QueueDifference(&domain.ChannelDifference{
		Kind:       domain.DifferencePage,
		Pts:        pts,
		DeletedIDs: []int64{id},
		Final:      true,
	})
	return nil
}

func (w *syncWorld) iterationFails(topicID int64, after int) error {
	w.remote.FailIterationAfter[topicID] = after
	return nil
}

func (w *syncWorld) trigger() error {
	w.run, w.err = w.orchestrator.RunOnce(context.Background())
	return nil
}

func (w *syncWorld) runSucceeds() error {
	if w.err != nil {
		return fmt.Errorf("expected success, got %v", w.err)
	}
	if w.run.Status != domain.RunStatusSuccess {
		return fmt.Errorf("expected status success, got %s", w.run.Status)
	}
	return nil
}

func (w *syncWorld) runFails() error {
	if w.err == nil || w.run == nil || w.run.Status != domain.RunStatusFailure {
		return fmt.Errorf("expected failure, got run=%+v err=%v", w.run, w.err)
	}
	return nil
}

func (w *syncWorld) runStrategy(strategy string) error {
	if string(w.run.Strategy) != strategy {
		return fmt.Errorf("expected strategy %s, got %s", strategy, w.run.Strategy)
	}
	return nil
}

func (w *syncWorld) allEnumerated() error {
	topics, _ := w.remote.ListTopics(context.Background())
	iterated := w.remote.Iterations()
	for _, t := range topics {
		if !slices.Contains(iterated, t.ID) {
			return fmt.Errorf("topic %d was not enumerated", t.ID)
		}
	}
	return nil
}

func (w *syncWorld) topicContains(topicID int64, ids string) error {
	want, err := parseIDs(ids)
	if err != nil {
		return err
	}
	slices.Sort(want)
	got := w.store.BookmarkIDs(topicID)
	if !slices.Equal(want, got) {
		return fmt.Errorf("topic %d: expected bookmarks %v, got %v", topicID, want, got)
	}
	return nil
}

func (w *syncWorld) cursorIs(pts int64) error {
	got, ok := w.store.CursorPts()
	if !ok {
		return errors.New("no sync cursor stored")
	}
	if got != pts {
		return fmt.Errorf("expected cursor %d, got %d", pts, got)
	}
	return nil
}

func (w *syncWorld) runInProgress() error {
	started := make(chan struct{})
	w.release = make(chan struct{})
	w.first = make(chan runResult, 1)

	topics := w.remote.Topics
	w.remote.ListTopicsFn = func() ([]*domain.RemoteTopic, error) {
		close(started)
		<-w.release
		return topics, nil
	}

	go func() {
		run, err := w.orchestrator.RunOnce(context.Background())
		w.first <- runResult{run, err}
	}()
	<-started
	return nil
}

func (w *syncWorld) alreadyRunning() error {
	if !errors.Is(w.err, domain.ErrSyncInProgress) {
		return fmt.Errorf("expected ErrSyncInProgress, got %v", w.err)
	}
	if w.run.Status != domain.RunStatusAlreadyRunning {
		return fmt.Errorf("expected already_running, got %s", w.run.Status)
	}
	return nil
}

func (w *syncWorld) firstSucceeds() error {
	close(w.release)
	res := <-w.first
	if res.err != nil {
		return fmt.Errorf("first run failed: %v", res.err)
	}
	if res.run.Status != domain.RunStatusSuccess {
		return fmt.Errorf("expected first run success, got %s", res.run.Status)
	}
	return nil
}
