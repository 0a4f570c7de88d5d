package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/TubeSage/internal/core"
	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

type fakeChatDB struct {
	core.DbClient

	channels map[string]*models.Channel
	chats    map[string]*models.Chat
	turns    map[string][]models.ChatResponse
	bindings []models.ChatSession

	appendErr error
}

func newFakeChatDB() *fakeChatDB {
	return &fakeChatDB{
		channels: map[string]*models.Channel{},
		chats:    map[string]*models.Chat{},
		turns:    map[string][]models.ChatResponse{},
	}
}

func (f *fakeChatDB) GetChannelByID(ctx context.Context, id string) (*models.Channel, error) {
	ch, ok := f.channels[id]
	if !ok {
		return nil, nil
	}
	cp := *ch
	return &cp, nil
}

func (f *fakeChatDB) CreateChat(ctx context.Context, chat *models.Chat) error {
	cp := *chat
	f.chats[chat.ID] = &cp
	return nil
}

func (f *fakeChatDB) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	chat, ok := f.chats[id]
	if !ok {
		return nil, nil
	}
	cp := *chat
	return &cp, nil
}

func (f *fakeChatDB) AppendChatResponses(ctx context.Context, chatID string, turns []models.ChatResponse) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	base := len(f.turns[chatID])
	for i, turn := range turns {
		turn.Position = base + i
		f.turns[chatID] = append(f.turns[chatID], turn)
	}
	return nil
}

func (f *fakeChatDB) ListChatResponses(ctx context.Context, chatID string, completedOnly bool) ([]models.ChatResponse, error) {
	var out []models.ChatResponse
	for _, turn := range f.turns[chatID] {
		if completedOnly && turn.Status != models.ResponseCompleted {
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

func (f *fakeChatDB) InsertChatSession(ctx context.Context, s *models.ChatSession) error {
	f.bindings = append(f.bindings, *s)
	return nil
}

func (f *fakeChatDB) LatestChatSession(ctx context.Context, sessionID, channelID string) (*models.ChatSession, error) {
	for i := len(f.bindings) - 1; i >= 0; i-- {
		b := f.bindings[i]
		if b.SessionID == sessionID && b.ChannelID == channelID {
			cp := b
			return &cp, nil
		}
	}
	return nil, nil
}

type fakeRetriever struct {
	chunks     []models.TranscriptChunk
	err        error
	namespaces []string
}

func (f *fakeRetriever) IndexDocuments(ctx context.Context, namespace string, docs []models.Document) error {
	return nil
}

func (f *fakeRetriever) Retrieve(ctx context.Context, namespace, query string, topK int) ([]models.TranscriptChunk, error) {
	f.namespaces = append(f.namespaces, namespace)
	return f.chunks, f.err
}

type scriptedLLM struct {
	deltas  []string
	openErr error
	midErr  error

	gotSystem  string
	gotHistory []models.ChatTurn
}

func (s *scriptedLLM) StreamChat(ctx context.Context, systemPrompt string, history []models.ChatTurn, userMessage string, onDelta func(string) error) error {
	s.gotSystem = systemPrompt
	s.gotHistory = history
	if s.openErr != nil {
		return s.openErr
	}
	for _, d := range s.deltas {
		if err := onDelta(d); err != nil {
			return err
		}
	}
	return s.midErr
}

func seedChat(db *fakeChatDB) *models.Chat {
	chat := &models.Chat{ID: "chat1", VectorIndexName: "tubesage", VectorNamespace: "ch1", ChatMode: DefaultMode}
	db.chats[chat.ID] = chat
	return chat
}

func TestGenerateResponseStreamMonotonicSnapshots(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	llm := &scriptedLLM{deltas: []string{"Go ", "is ", "fun"}}
	retriever := &fakeRetriever{chunks: []models.TranscriptChunk{{VideoTitle: "Intro", ChannelTitle: "Chan", Text: "about go"}}}
	engine := NewEngine(db, retriever, llm, 5, zerolog.Nop())

	var snapshots []models.ChatResponse
	final, err := engine.GenerateResponseStream(context.Background(), chat, "what is go?", func(s models.ChatResponse) error {
		snapshots = append(snapshots, s)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, snapshots, 4, "one per delta plus the final completed frame")
	prev := ""
	for _, s := range snapshots[:3] {
		assert.Equal(t, models.ResponseInProgress, s.Status)
		assert.True(t, len(s.Content) > len(prev), "content grows monotonically")
		assert.Equal(t, prev, s.Content[:len(prev)], "earlier content is a prefix of later content")
		prev = s.Content
	}
	last := snapshots[3]
	assert.Equal(t, models.ResponseCompleted, last.Status)
	assert.Equal(t, "Go is fun", last.Content, "final snapshot equals the concatenated deltas")
	assert.Equal(t, last.Content, final.Content)

	assert.Equal(t, []string{"ch1"}, retriever.namespaces, "retrieval is scoped to the chat's namespace")
	assert.Contains(t, llm.gotSystem, "about go", "retrieved chunks reach the system prompt")
}

func TestGenerateResponseStreamPersistsUserThenAssistant(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	engine := NewEngine(db, &fakeRetriever{}, &scriptedLLM{deltas: []string{"answer"}}, 5, zerolog.Nop())

	_, err := engine.GenerateResponse(context.Background(), chat, "question?")
	require.NoError(t, err)

	turns := db.turns[chat.ID]
	require.Len(t, turns, 2)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, "question?", turns[0].Content)
	assert.Equal(t, models.ResponseCompleted, turns[0].Status)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "answer", turns[1].Content)
	assert.Equal(t, models.ResponseCompleted, turns[1].Status)
	assert.Equal(t, 0, turns[0].Position)
	assert.Equal(t, 1, turns[1].Position)
}

func TestGenerateResponseStreamSeedsCompletedHistory(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	db.turns[chat.ID] = []models.ChatResponse{
		{Role: models.RoleUser, Content: "old q", Status: models.ResponseCompleted, Position: 0},
		{Role: models.RoleUser, Content: "broken", Status: models.ResponseFailed, Position: 1},
		{Role: models.RoleAssistant, Content: "old a", Status: models.ResponseCompleted, Position: 2},
	}
	llm := &scriptedLLM{deltas: []string{"new answer"}}
	engine := NewEngine(db, &fakeRetriever{}, llm, 5, zerolog.Nop())

	_, err := engine.GenerateResponse(context.Background(), chat, "new q")
	require.NoError(t, err)

	require.Len(t, llm.gotHistory, 2, "failed turns never reach the generation backend")
	assert.Equal(t, "old q", llm.gotHistory[0].Content)
	assert.Equal(t, "old a", llm.gotHistory[1].Content)
}

func TestGenerateResponseStreamOpenFailure(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	engine := NewEngine(db, &fakeRetriever{}, &scriptedLLM{openErr: errors.New("backend down")}, 5, zerolog.Nop())

	_, err := engine.GenerateResponseStream(context.Background(), chat, "question?", func(models.ChatResponse) error { return nil })
	require.ErrorIs(t, err, errs.ErrGenerationFailed)

	turns := db.turns[chat.ID]
	require.Len(t, turns, 1, "only the failed user turn is recorded")
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, models.ResponseFailed, turns[0].Status)
	assert.NotEmpty(t, turns[0].StatusReason)
}

func TestGenerateResponseStreamEmptyOutput(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	engine := NewEngine(db, &fakeRetriever{}, &scriptedLLM{}, 5, zerolog.Nop())

	_, err := engine.GenerateResponse(context.Background(), chat, "question?")
	require.ErrorIs(t, err, errs.ErrGenerationFailed)

	turns := db.turns[chat.ID]
	require.Len(t, turns, 1)
	assert.Equal(t, models.ResponseFailed, turns[0].Status)
}

func TestGenerateResponseStreamMidStreamFault(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	llm := &scriptedLLM{deltas: []string{"partial "}, midErr: errors.New("stream cut")}
	engine := NewEngine(db, &fakeRetriever{}, llm, 5, zerolog.Nop())

	_, err := engine.GenerateResponseStream(context.Background(), chat, "question?", func(models.ChatResponse) error { return nil })
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrGenerationFailed, "a mid-stream fault propagates as itself")

	turns := db.turns[chat.ID]
	require.Len(t, turns, 1, "no partial assistant turn is committed")
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, models.ResponseFailed, turns[0].Status)
	assert.Equal(t, "exception raised", turns[0].StatusReason)
}

func TestGenerateResponseStreamConsumerAbandonment(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	llm := &scriptedLLM{deltas: []string{"one", "two", "three"}}
	engine := NewEngine(db, &fakeRetriever{}, llm, 5, zerolog.Nop())

	gone := errors.New("consumer gone")
	emits := 0
	_, err := engine.GenerateResponseStream(context.Background(), chat, "question?", func(models.ChatResponse) error {
		emits++
		if emits == 2 {
			return gone
		}
		return nil
	})
	require.Error(t, err)

	for _, turn := range db.turns[chat.ID] {
		assert.NotEqual(t, models.RoleAssistant, turn.Role, "abandonment never commits a partial assistant turn")
	}
}

func TestGenerateResponseStreamRetrievalFailure(t *testing.T) {
	db := newFakeChatDB()
	chat := seedChat(db)
	engine := NewEngine(db, &fakeRetriever{err: fmt.Errorf("index down")}, &scriptedLLM{deltas: []string{"x"}}, 5, zerolog.Nop())

	_, err := engine.GenerateResponse(context.Background(), chat, "question?")
	require.ErrorIs(t, err, errs.ErrGenerationFailed)
}
