package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/asolanog/conversia/internal/models"
	"github.com/asolanog/conversia/internal/provider"
)

type fakeProvider struct {
	conversations []provider.Conversation
	messages      map[string][]provider.Message
	listErr       error
	messagesErr   map[string]error

	convCalls int
}

func (f *fakeProvider) ListConversations(_ context.Context, limit int, lastID string) (*provider.Page[provider.Conversation], error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.convCalls++

	start := 0
	if lastID != "" {
		for i, c := range f.conversations {
			if c.ID == lastID {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(f.conversations) {
		end = len(f.conversations)
	}
	return &provider.Page[provider.Conversation]{
		Data:    f.conversations[start:end],
		HasMore: end < len(f.conversations),
		Limit:   limit,
	}, nil
}

func (f *fakeProvider) ListMessages(_ context.Context, conversationID string, limit int, lastID string) (*provider.Page[provider.Message], error) {
	if err := f.messagesErr[conversationID]; err != nil {
		return nil, err
	}
	msgs := f.messages[conversationID]
	return &provider.Page[provider.Message]{Data: msgs, HasMore: false, Limit: limit}, nil
}

type fakeStore struct {
	conversations map[string]models.ConversationUpsert
	messages      map[string]models.MessageUpsert
	failConvID    string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conversations: make(map[string]models.ConversationUpsert),
		messages:      make(map[string]models.MessageUpsert),
	}
}

func (f *fakeStore) UpsertConversation(_ context.Context, in models.ConversationUpsert) (*models.Conversation, error) {
	if in.ID == f.failConvID {
		return nil, errors.New("datastore unavailable")
	}
	f.conversations[in.ID] = in
	return &models.Conversation{Title: in.Title, Channel: in.Channel, Messages: in.Messages}, nil
}

func (f *fakeStore) UpsertMessage(_ context.Context, in models.MessageUpsert) (*models.Message, error) {
	f.messages[in.ID] = in
	return &models.Message{Content: in.Content, Sender: in.Sender}, nil
}

func (f *fakeStore) CountMessages(_ context.Context, conversationID string) (int, error) {
	n := 0
	for _, m := range f.messages {
		if m.ConversationID == conversationID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SetConversationMessageCount(_ context.Context, conversationID string, count int) error {
	conv, ok := f.conversations[conversationID]
	if !ok {
		return errors.New("conversation not found")
	}
	conv.Messages = count
	f.conversations[conversationID] = conv
	return nil
}

func TestRunSyncsConversationsAndMessages(t *testing.T) {
	p := &fakeProvider{
		conversations: []provider.Conversation{
			{ID: "conv-1", Name: "Consulta tarifas", CreatedAt: 1700000000},
			{ID: "conv-2", Name: "", CreatedAt: 1700001000},
		},
		messages: map[string][]provider.Message{
			"conv-1": {
				{ID: "m1", ConversationID: "conv-1", Query: "¿Cuánto cuesta?", Answer: "Depende del plan.", CreatedAt: 1700000100},
				{ID: "m2", ConversationID: "conv-1", Query: "¿Y el plan básico?", Answer: "20 euros al mes.", CreatedAt: 1700000200},
			},
			"conv-2": {},
		},
	}
	store := newFakeStore()
	s := New(p, store, nil, Options{PageLimit: 10, MaxPages: 1})

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Succeeded) != 2 {
		t.Errorf("expected 2 succeeded, got %d", len(report.Succeeded))
	}
	if len(report.Failed) != 0 {
		t.Errorf("expected no failures, got %v", report.Failed)
	}
	if report.MessagesUpdated != 4 {
		t.Errorf("expected 4 messages written, got %d", report.MessagesUpdated)
	}

	conv := store.conversations["conv-1"]
	if conv.Title != "Consulta tarifas" {
		t.Errorf("title: got %q", conv.Title)
	}
	if conv.Messages != 4 {
		t.Errorf("message count should match the written rows, got %d", conv.Messages)
	}
	if conv.Channel != "Web" {
		t.Errorf("channel: got %q", conv.Channel)
	}
	if conv.Client != "Sin cliente" {
		t.Errorf("client placeholder: got %q", conv.Client)
	}
	if !conv.Date.Equal(time.Unix(1700000000, 0).UTC()) {
		t.Errorf("date: got %v", conv.Date)
	}

	// Untitled conversations get a fallback derived from the id
	if got := store.conversations["conv-2"].Title; got != "Conversación conv-2" {
		t.Errorf("fallback title: got %q", got)
	}

	// Each exchange becomes a query row and an answer row one second later
	q := store.messages["m1-query"]
	a := store.messages["m1-answer"]
	if q.Sender != models.SenderUser || a.Sender != models.SenderAssistant {
		t.Errorf("senders: query %q, answer %q", q.Sender, a.Sender)
	}
	if q.Content != "¿Cuánto cuesta?" || a.Content != "Depende del plan." {
		t.Errorf("contents: query %q, answer %q", q.Content, a.Content)
	}
	if !a.Timestamp.Equal(q.Timestamp.Add(time.Second)) {
		t.Errorf("answer should be one second after query: %v vs %v", q.Timestamp, a.Timestamp)
	}
}

func TestRunLongIDFallbackTitle(t *testing.T) {
	p := &fakeProvider{
		conversations: []provider.Conversation{
			{ID: "a1b2c3d4-e5f6-7890-abcd-ef1234567890", CreatedAt: 1700000000},
		},
		messages: map[string][]provider.Message{},
	}
	store := newFakeStore()
	s := New(p, store, nil, Options{})

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := store.conversations["a1b2c3d4-e5f6-7890-abcd-ef1234567890"].Title
	if got != "Conversación a1b2c3d4" {
		t.Errorf("fallback title: got %q", got)
	}
}

func TestRunEmptyProvider(t *testing.T) {
	p := &fakeProvider{}
	store := newFakeStore()
	s := New(p, store, nil, Options{})

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Succeeded) != 0 || len(report.Failed) != 0 {
		t.Errorf("expected empty report, got %+v", report)
	}
}

func TestRunListingFailureIsFatal(t *testing.T) {
	apiErr := &provider.APIError{StatusCode: 503, Body: "unavailable"}
	p := &fakeProvider{listErr: apiErr}
	s := New(p, newFakeStore(), nil, Options{})

	_, err := s.Run(context.Background())
	var got *provider.APIError
	if !errors.As(err, &got) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if got.StatusCode != 503 {
		t.Errorf("status: got %d", got.StatusCode)
	}
}

func TestRunPerConversationFailuresContinue(t *testing.T) {
	p := &fakeProvider{
		conversations: []provider.Conversation{
			{ID: "ok-1", Name: "Bien", CreatedAt: 1700000000},
			{ID: "bad-messages", Name: "Mensajes rotos", CreatedAt: 1700000000},
			{ID: "bad-store", Name: "Datastore roto", CreatedAt: 1700000000},
			{ID: "ok-2", Name: "También bien", CreatedAt: 1700000000},
		},
		messages: map[string][]provider.Message{
			"ok-1": {{ID: "x1", Query: "hola", Answer: "hola", CreatedAt: 1700000000}},
			"ok-2": {},
		},
		messagesErr: map[string]error{
			"bad-messages": &provider.APIError{StatusCode: 500, Body: "boom"},
		},
	}
	store := newFakeStore()
	store.failConvID = "bad-store"
	s := New(p, store, nil, Options{})

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not fail for per-item errors: %v", err)
	}

	if len(report.Succeeded) != 2 {
		t.Errorf("expected 2 succeeded, got %v", report.Succeeded)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("expected 2 failed, got %v", report.Failed)
	}
	failedIDs := map[string]bool{}
	for _, f := range report.Failed {
		failedIDs[f.ConversationID] = true
		if f.Err == nil {
			t.Errorf("failure for %s missing error", f.ConversationID)
		}
	}
	if !failedIDs["bad-messages"] || !failedIDs["bad-store"] {
		t.Errorf("unexpected failed set: %v", failedIDs)
	}

	// A message-listing failure still leaves the conversation record behind,
	// with its count at zero; a conversation upsert failure leaves nothing.
	conv, ok := store.conversations["bad-messages"]
	if !ok {
		t.Fatal("conversation with broken messages should still be upserted")
	}
	if conv.Messages != 0 {
		t.Errorf("conversation with broken messages should keep count 0, got %d", conv.Messages)
	}
	if _, ok := store.conversations["bad-store"]; ok {
		t.Error("failed conversation upsert should leave no record")
	}
}

func TestRunSkipsEmptyTurns(t *testing.T) {
	p := &fakeProvider{
		conversations: []provider.Conversation{{ID: "c1", CreatedAt: 1700000000}},
		messages: map[string][]provider.Message{
			"c1": {
				{ID: "m1", Query: "", Answer: "", CreatedAt: 1700000000},
				{ID: "m2", Query: "hola", Answer: "", CreatedAt: 1700000100},
				{ID: "m3", Query: "", Answer: "bienvenido", CreatedAt: 1700000200},
			},
		},
	}
	store := newFakeStore()
	s := New(p, store, nil, Options{})

	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, id := range []string{"m1-query", "m1-answer", "m2-answer", "m3-query"} {
		if _, ok := store.messages[id]; ok {
			t.Errorf("empty turn %s should not be written", id)
		}
	}
	for _, id := range []string{"m2-query", "m3-answer"} {
		if _, ok := store.messages[id]; !ok {
			t.Errorf("non-empty turn %s missing", id)
		}
	}

	if report.MessagesUpdated != 2 {
		t.Errorf("expected 2 messages written, got %d", report.MessagesUpdated)
	}
	if got := store.conversations["c1"].Messages; got != 2 {
		t.Errorf("count should reflect written rows only, got %d", got)
	}
}

func TestRunPaginationRespectsMaxPages(t *testing.T) {
	var convs []provider.Conversation
	for i := 0; i < 5; i++ {
		convs = append(convs, provider.Conversation{ID: string(rune('a'+i)) + "-conv", CreatedAt: 1700000000})
	}
	p := &fakeProvider{conversations: convs, messages: map[string][]provider.Message{}}
	store := newFakeStore()

	// Two pages of two: four of five conversations synced
	s := New(p, store, nil, Options{PageLimit: 2, MaxPages: 2})
	report, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Succeeded) != 4 {
		t.Errorf("expected 4 synced with 2 pages of 2, got %d", len(report.Succeeded))
	}
	if p.convCalls != 2 {
		t.Errorf("expected 2 listing calls, got %d", p.convCalls)
	}
}

func TestRunProgressCallback(t *testing.T) {
	p := &fakeProvider{
		conversations: []provider.Conversation{
			{ID: "c1", CreatedAt: 1700000000},
			{ID: "c2", CreatedAt: 1700000000},
		},
		messages: map[string][]provider.Message{},
	}
	s := New(p, newFakeStore(), nil, Options{})

	var seen []Progress
	s.OnProgress = func(pr Progress) { seen = append(seen, pr) }

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 progress events, got %d", len(seen))
	}
	if seen[0].Done != 1 || seen[0].Total != 2 {
		t.Errorf("first event: %+v", seen[0])
	}
	if seen[1].Done != 2 {
		t.Errorf("second event: %+v", seen[1])
	}
}
