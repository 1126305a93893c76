package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"decision-server/internal/messaging"
	"decision-server/internal/model"
	"decision-server/internal/repository"
	"decision-server/internal/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ScenarioSource генерирует следующий сценарий по категории, роли и истории.
type ScenarioSource interface {
	Generate(ctx context.Context, category, role string, history []model.Scenario) (model.Scenario, error)
}

// FeedbackSource строит итоговую оценку по ответам.
type FeedbackSource interface {
	Generate(ctx context.Context, responses []model.Response) (model.Feedback, error)
}

// Options - настройки Manager.
type Options struct {
	MaxScenarios    int
	Cooldown        time.Duration
	PrefetchEnabled bool
	// PrefetchTimeout ограничивает фоновую генерацию целиком, включая повторы.
	PrefetchTimeout time.Duration
}

// Results - данные страницы результатов.
type Results struct {
	Session  *model.Session       `json:"session"`
	Feedback model.Feedback       `json:"feedback"`
	Answers  []model.AnswerResult `json:"answers"`
}

// liveSession - состояние сессии, которое живёт только в процессе.
type liveSession struct {
	// slot - очередь из одного места: одновременно не больше одного запроса к модели на сессию.
	slot *semaphore.Weighted
	gate *Cooldown
	// stateMu сериализует чтение-изменение-запись снимка. Берётся только после slot.
	stateMu sync.Mutex

	prefetchMu    sync.Mutex
	prefetched    *model.Scenario
	prefetchedFor int
	// epoch растёт при сбросе сессии; предзагрузка, начатая в старой эпохе, не сохраняется.
	epoch int

	lastUsed time.Time // под Manager.mu
}

// Manager ведёт сессии: создаёт, выдаёт текущий сценарий, принимает ответы и строит результаты.
// Состояние сессии хранится в репозитории; генераторы получают только явные аргументы.
type Manager struct {
	scenarios ScenarioSource
	feedback  FeedbackSource
	repo      repository.SessionRepository
	publisher messaging.ResultPublisher
	opts      Options
	logger    *zap.Logger
	now       func() time.Time

	mu   sync.Mutex
	live map[string]*liveSession

	background sync.WaitGroup
}

// NewManager создаёт Manager. publisher может быть nil.
func NewManager(
	scenarios ScenarioSource,
	feedback FeedbackSource,
	repo repository.SessionRepository,
	publisher messaging.ResultPublisher,
	opts Options,
	logger *zap.Logger,
) *Manager {
	if opts.MaxScenarios <= 0 {
		opts.MaxScenarios = model.DefaultMaxScenarios
	}
	if opts.PrefetchTimeout <= 0 {
		opts.PrefetchTimeout = 2 * time.Minute
	}
	if publisher == nil {
		publisher = messaging.NewNoopResultPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		scenarios: scenarios,
		feedback:  feedback,
		repo:      repo,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("session_manager"),
		now:       time.Now,
		live:      make(map[string]*liveSession),
	}
}

func (m *Manager) liveFor(id string) *liveSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.live[id]
	if !ok {
		ls = &liveSession{
			slot:          semaphore.NewWeighted(1),
			gate:          NewCooldown(m.opts.Cooldown),
			prefetchedFor: -1,
		}
		m.live[id] = ls
		liveSessions.Set(float64(len(m.live)))
	}
	ls.lastUsed = m.now()
	return ls
}

func (m *Manager) forget(id string) {
	m.mu.Lock()
	delete(m.live, id)
	liveSessions.Set(float64(len(m.live)))
	m.mu.Unlock()
}

// load читает снимок. Для исчезнувшей сессии (удалена или истёк TTL) процессное состояние выбрасывается.
func (m *Manager) load(ctx context.Context, id string) (*model.Session, error) {
	s, err := m.repo.Get(ctx, id)
	if errors.Is(err, model.ErrSessionNotFound) {
		m.forget(id)
	}
	return s, err
}

// EvictIdle выбрасывает процессное состояние сессий, к которым не обращались дольше maxIdle.
// Сессии с работающим запросом к модели или изменением снимка пропускаются. Возвращает число
// выброшенных записей.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	evicted := 0
	for id, ls := range m.live {
		if now.Sub(ls.lastUsed) < maxIdle {
			continue
		}
		if !ls.slot.TryAcquire(1) {
			continue
		}
		if ls.stateMu.TryLock() {
			delete(m.live, id)
			evicted++
			ls.stateMu.Unlock()
		}
		ls.slot.Release(1)
	}
	liveSessions.Set(float64(len(m.live)))
	return evicted
}

// RunEviction периодически вызывает EvictIdle до отмены ctx. Неположительный maxIdle
// заменяется на сутки.
func (m *Manager) RunEviction(ctx context.Context, maxIdle time.Duration) {
	if maxIdle <= 0 {
		maxIdle = 24 * time.Hour
	}
	interval := maxIdle / 4
	if interval <= 0 || interval > 10*time.Minute {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(maxIdle); n > 0 {
				m.logger.Debug("Idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// Start создаёт сессию в категории с заранее подготовленным первым сценарием.
// Непустая роль проверяется сразу; ошибка роли не повторяется.
func (m *Manager) Start(ctx context.Context, category, role string) (*model.Session, error) {
	role = strings.TrimSpace(role)
	if role != "" {
		if err := validation.ValidateRole(role); err != nil {
			return nil, err
		}
	}
	first, err := model.FirstScenario(category)
	if err != nil {
		return nil, err
	}

	s := model.NewSession(uuid.NewString(), category, role, first, m.opts.MaxScenarios, m.now())
	if err := m.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	sessionsStartedTotal.WithLabelValues(category).Inc()
	m.logger.Info("Session started", zap.String("session_id", s.ID), zap.String("category", category))
	return s, nil
}

// Get возвращает снимок сессии.
func (m *Manager) Get(ctx context.Context, id string) (*model.Session, error) {
	return m.load(ctx, id)
}

// CurrentScenario возвращает текущий сценарий, при необходимости генерируя его.
// Генерация идёт через слот сессии: если работает предзагрузка, вызов дожидается её и
// забирает её результат вместо нового запроса.
func (m *Manager) CurrentScenario(ctx context.Context, id string) (*model.Session, *model.Scenario, error) {
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.Page == model.PagePractice {
		// Категория ещё не выбрана, сценария нет.
		return s, nil, nil
	}
	if s.IsComplete() {
		return s, nil, model.ErrSessionComplete
	}
	if cur, ok := s.Current(); ok {
		return s, cur, nil
	}

	ls := m.liveFor(id)
	if err := ls.slot.Acquire(ctx, 1); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	defer ls.slot.Release(1)

	ls.stateMu.Lock()
	defer ls.stateMu.Unlock()

	s, err = m.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if s.Page == model.PagePractice {
		return s, nil, nil
	}
	if !s.NeedsScenario() {
		cur, ok := s.Current()
		if !ok {
			return s, nil, model.ErrSessionComplete
		}
		return s, cur, nil
	}

	next := ls.takePrefetched(s)
	if next == nil {
		generated, err := m.generate(ctx, ls, s)
		if err != nil {
			return s, nil, err
		}
		next = &generated
	}
	if err := s.AppendScenario(next, m.now()); err != nil {
		return s, nil, err
	}
	if err := m.repo.Save(ctx, s); err != nil {
		return s, nil, err
	}
	cur, _ := s.Current()
	return s, cur, nil
}

// generate вызывается с захваченным слотом.
func (m *Manager) generate(ctx context.Context, ls *liveSession, s *model.Session) (model.Scenario, error) {
	start := time.Now()
	if err := ls.gate.Wait(ctx); err != nil {
		return model.Scenario{}, fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	cooldownWaitSeconds.Observe(time.Since(start).Seconds())

	sc, err := m.scenarios.Generate(ctx, s.Category, s.Role, s.History())
	if err != nil {
		m.logger.Warn("Scenario generation failed",
			zap.String("session_id", s.ID), zap.String("kind", string(model.KindOf(err))), zap.Error(err))
		return model.Scenario{}, err
	}
	ls.gate.MarkSuccess()
	return sc, nil
}

// Answer записывает ответ на текущий сценарий. Если следующий сценарий уже предзагружен, он сразу
// становится текущим.
func (m *Manager) Answer(ctx context.Context, id, selected, explanation string) (*model.Session, error) {
	ls := m.liveFor(id)
	ls.stateMu.Lock()
	defer ls.stateMu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Answer(selected, explanation, m.now()); err != nil {
		return s, err
	}
	if s.NeedsScenario() {
		if next := ls.takePrefetched(s); next != nil {
			if err := s.AppendScenario(next, m.now()); err != nil {
				return s, err
			}
		}
	}
	if err := m.repo.Save(ctx, s); err != nil {
		return s, err
	}
	return s, nil
}

// Prefetch запускает фоновую генерацию следующего сценария. Возвращает false, если запуск не нужен
// или слот сессии занят. Ошибки фоновой генерации только логируются.
func (m *Manager) Prefetch(ctx context.Context, id string) bool {
	if !m.opts.PrefetchEnabled {
		return false
	}
	s, err := m.load(ctx, id)
	if err != nil || !needsPrefetch(s) {
		return false
	}

	ls := m.liveFor(id)
	if ls.hasPrefetchedFor(len(s.Scenarios)) {
		return false
	}
	if !ls.slot.TryAcquire(1) {
		prefetchTotal.WithLabelValues("busy").Inc()
		return false
	}
	prefetchTotal.WithLabelValues("started").Inc()

	m.background.Add(1)
	go func() {
		defer m.background.Done()
		defer ls.slot.Release(1)

		bgCtx, cancel := context.WithTimeout(context.Background(), m.opts.PrefetchTimeout)
		defer cancel()
		m.prefetch(bgCtx, ls, id)
	}()
	return true
}

// prefetch вызывается с захваченным слотом.
func (m *Manager) prefetch(ctx context.Context, ls *liveSession, id string) {
	ls.stateMu.Lock()
	s, err := m.load(ctx, id)
	epoch := ls.currentEpoch()
	ls.stateMu.Unlock()
	if err != nil || !needsPrefetch(s) || ls.hasPrefetchedFor(len(s.Scenarios)) {
		return
	}

	sc, err := m.generate(ctx, ls, s)
	if err != nil {
		prefetchTotal.WithLabelValues("failed").Inc()
		return
	}

	ls.prefetchMu.Lock()
	if ls.epoch != epoch {
		ls.prefetchMu.Unlock()
		prefetchTotal.WithLabelValues("discarded").Inc()
		return
	}
	ls.prefetched = &sc
	ls.prefetchedFor = len(s.Scenarios)
	ls.prefetchMu.Unlock()
	prefetchTotal.WithLabelValues("stored").Inc()
	m.logger.Debug("Next scenario prefetched", zap.String("session_id", id), zap.Int("index", len(s.Scenarios)))
}

// needsPrefetch - текущий сценарий показан, а следующего ещё нет и он понадобится.
func needsPrefetch(s *model.Session) bool {
	if s.IsComplete() || s.Page != model.PageScenario {
		return false
	}
	if _, ok := s.Current(); !ok {
		return false
	}
	return !s.HasNext() && s.RemainingAfterCurrent() > 0 && len(s.Scenarios) < s.MaxScenarios
}

func (ls *liveSession) hasPrefetchedFor(index int) bool {
	ls.prefetchMu.Lock()
	defer ls.prefetchMu.Unlock()
	return ls.prefetched != nil && ls.prefetchedFor == index
}

// takePrefetched забирает предзагруженный сценарий, если он предназначен для следующей позиции
// сессии и не повторяет её историю. Устаревший результат выбрасывается.
func (ls *liveSession) takePrefetched(s *model.Session) *model.Scenario {
	ls.prefetchMu.Lock()
	defer ls.prefetchMu.Unlock()
	sc := ls.prefetched
	if sc == nil {
		return nil
	}
	forIndex := ls.prefetchedFor
	ls.prefetched = nil
	ls.prefetchedFor = -1

	if forIndex != len(s.Scenarios) {
		prefetchTotal.WithLabelValues("discarded").Inc()
		return nil
	}
	for _, h := range s.Scenarios {
		if h != nil && h.Description == sc.Description {
			prefetchTotal.WithLabelValues("discarded").Inc()
			return nil
		}
	}
	prefetchTotal.WithLabelValues("used").Inc()
	return sc
}

func (ls *liveSession) currentEpoch() int {
	ls.prefetchMu.Lock()
	defer ls.prefetchMu.Unlock()
	return ls.epoch
}

// dropPrefetched выбрасывает предзагруженный сценарий и результат предзагрузки, которая ещё идёт.
func (ls *liveSession) dropPrefetched() {
	ls.prefetchMu.Lock()
	ls.prefetched = nil
	ls.prefetchedFor = -1
	ls.epoch++
	ls.prefetchMu.Unlock()
}

// Results строит итоговую оценку завершённой сессии. Оценка строится заново при каждом вызове,
// событие о завершении публикуется до первой успешной отправки.
func (m *Manager) Results(ctx context.Context, id string) (*Results, error) {
	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsComplete() {
		return nil, model.ErrSessionIncomplete
	}

	ls := m.liveFor(id)
	if err := ls.slot.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	defer ls.slot.Release(1)

	// Отметка о публикации меняется только под слотом.
	s, err = m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.IsComplete() {
		return nil, model.ErrSessionIncomplete
	}

	if err := ls.gate.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	fb, err := m.feedback.Generate(ctx, s.Responses)
	if err != nil {
		m.logger.Warn("Feedback generation failed",
			zap.String("session_id", id), zap.String("kind", string(model.KindOf(err))), zap.Error(err))
		return nil, err
	}
	ls.gate.MarkSuccess()

	if !s.CompletionReported {
		m.reportCompletion(ctx, ls, s, fb)
	}
	return &Results{Session: s, Feedback: fb, Answers: s.Results()}, nil
}

// reportCompletion вызывается с захваченным слотом. Отметка сохраняется только после успешной публикации.
func (m *Manager) reportCompletion(ctx context.Context, ls *liveSession, s *model.Session, fb model.Feedback) {
	event := messaging.SessionCompletedEvent{
		Type:         messaging.EventSessionCompleted,
		SessionID:    s.ID,
		Category:     s.Category,
		Role:         s.Role,
		CorrectCount: fb.CorrectCount,
		Total:        len(s.Responses),
		CompletedAt:  m.now(),
	}
	if err := m.publisher.PublishSessionCompleted(ctx, event); err != nil {
		m.logger.Warn("Failed to publish session completion", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	sessionsCompletedTotal.Inc()

	ls.stateMu.Lock()
	defer ls.stateMu.Unlock()
	cur, err := m.load(ctx, s.ID)
	if err != nil || !cur.IsComplete() {
		return
	}
	cur.CompletionReported = true
	if err := m.repo.Save(ctx, cur); err != nil {
		m.logger.Warn("Failed to mark completion as reported", zap.String("session_id", s.ID), zap.Error(err))
		return
	}
	s.CompletionReported = true
}

// Reset возвращает сессию к выбору категории ("выбрать другой сценарий"). Роль сохраняется.
func (m *Manager) Reset(ctx context.Context, id string) (*model.Session, error) {
	ls := m.liveFor(id)
	ls.stateMu.Lock()
	defer ls.stateMu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Reset(m.now())
	ls.dropPrefetched()
	if err := m.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ChooseCategory начинает сессию заново в другой категории с её первым сценарием.
func (m *Manager) ChooseCategory(ctx context.Context, id, category string) (*model.Session, error) {
	first, err := model.FirstScenario(category)
	if err != nil {
		return nil, err
	}

	ls := m.liveFor(id)
	ls.stateMu.Lock()
	defer ls.stateMu.Unlock()

	s, err := m.load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Restart(category, first, m.now())
	ls.dropPrefetched()
	if err := m.repo.Save(ctx, s); err != nil {
		return nil, err
	}
	sessionsStartedTotal.WithLabelValues(category).Inc()
	return s, nil
}

// Delete удаляет сессию ("начать новую сессию").
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := m.repo.Delete(ctx, id); err != nil {
		return err
	}
	m.forget(id)
	return nil
}

// Wait дожидается завершения фоновых предзагрузок.
func (m *Manager) Wait() {
	m.background.Wait()
}
