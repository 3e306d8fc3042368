package assistant

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sampurna/itsupport/internal/composer"
	"github.com/sampurna/itsupport/internal/events"
	"github.com/sampurna/itsupport/internal/llm"
	"github.com/sampurna/itsupport/internal/middleware"
	"github.com/sampurna/itsupport/internal/normalize"
	"github.com/sampurna/itsupport/internal/retrieval"
	"github.com/sampurna/itsupport/internal/vision"
)

type fakeAnalyzer struct {
	report  string
	payload string
	order   *[]string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, payload string) string {
	f.payload = payload
	if f.order != nil {
		*f.order = append(*f.order, "vision")
	}
	return f.report
}

type orderedNormalizer struct {
	inner *normalize.Normalizer
	order *[]string
}

func (n orderedNormalizer) Normalize(q string) string {
	*n.order = append(*n.order, "normalize")
	return n.inner.Normalize(q)
}

type fakeComposer struct {
	answer composer.Answer
	err    error
	panic  bool
	got    composer.Input
	calls  int
	order  *[]string
}

func (f *fakeComposer) Compose(_ context.Context, in composer.Input) (composer.Answer, error) {
	f.calls++
	f.got = in
	if f.order != nil {
		*f.order = append(*f.order, "compose")
	}
	if f.panic {
		panic("nil map write")
	}
	return f.answer, f.err
}

type recordingSink struct {
	events []events.AnswerEvent
	err    error
}

func (r *recordingSink) PublishAnswer(_ context.Context, e events.AnswerEvent) error {
	r.events = append(r.events, e)
	return r.err
}

func TestAsk_PipelineOrderAndInputs(t *testing.T) {
	var order []string
	an := &fakeAnalyzer{report: "[OCR RAW TEXT]: Error 809", order: &order}
	comp := &fakeComposer{answer: composer.Answer{Text: "- Summary: reconnect", ToolCalled: true, Retrieval: retrieval.StatusOK}, order: &order}
	svc := NewService(an, orderedNormalizer{inner: normalize.New(), order: &order}, comp, nil)

	history := []string{"USER: a", "ASSISTANT: b", "USER: c", "ASSISTANT: d", "USER: e", "ASSISTANT: f", "USER: g"}
	resp := svc.Ask(context.Background(), ChannelHTTP, QueryRequest{
		Question:    "  my tab is lost ",
		ChatHistory: history,
		ImageData:   "data:image/png;base64,QUJD",
	})

	assert.Equal(t, "- Summary: reconnect", resp.Answer)
	assert.Equal(t, []string{"vision", "normalize", "compose"}, order)
	assert.Equal(t, "data:image/png;base64,QUJD", an.payload)

	assert.Equal(t, "my tab is lost", comp.got.Question)
	assert.Equal(t, "my tab is lost"+normalize.TabletSuffix+normalize.AssetLossSuffix, comp.got.Normalized)
	assert.Equal(t, "USER: c\nASSISTANT: d\nUSER: e\nASSISTANT: f\nUSER: g", comp.got.Context)
	assert.Equal(t, "[OCR RAW TEXT]: Error 809", comp.got.VisionReport)
}

func TestAsk_NoImageSkipsVision(t *testing.T) {
	an := &fakeAnalyzer{report: "unused"}
	comp := &fakeComposer{answer: composer.Answer{Text: "answer"}}
	NewService(an, normalize.New(), comp, nil).Ask(context.Background(), ChannelHTTP, QueryRequest{Question: "vpn setup"})

	assert.Empty(t, an.payload)
	assert.Empty(t, comp.got.VisionReport)
	assert.Equal(t, "No previous context.", comp.got.Context)
}

func TestAsk_Fallbacks(t *testing.T) {
	tests := []struct {
		name     string
		question string
		comp     *fakeComposer
		want     string
		outcome  string
	}{
		{"answered", "policy", &fakeComposer{answer: composer.Answer{Text: "- Summary"}}, "- Summary", events.OutcomeAnswered},
		{"blank reply", "policy", &fakeComposer{answer: composer.Answer{Text: ""}}, GuidanceMessage, events.OutcomeGuidance},
		{"blank question", "   ", &fakeComposer{answer: composer.Answer{Text: "unused"}}, GuidanceMessage, events.OutcomeGuidance},
		{"composer error", "policy", &fakeComposer{err: errors.New("pq: connection refused at 10.0.0.5")}, ApologyMessage, events.OutcomeApology},
		{"composer panic", "policy", &fakeComposer{panic: true}, ApologyMessage, events.OutcomeApology},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			svc := NewService(&fakeAnalyzer{}, normalize.New(), tt.comp, sink)

			resp := svc.Ask(context.Background(), ChannelHTTP, QueryRequest{Question: tt.question})

			assert.Equal(t, tt.want, resp.Answer)
			assert.NotContains(t, resp.Answer, "10.0.0.5")
			require.Len(t, sink.events, 1)
			assert.Equal(t, tt.outcome, sink.events[0].Outcome)
			assert.Equal(t, ChannelHTTP, sink.events[0].Channel)
		})
	}
}

func TestAsk_BlankQuestionSkipsModel(t *testing.T) {
	comp := &fakeComposer{}
	NewService(&fakeAnalyzer{}, normalize.New(), comp, nil).Ask(context.Background(), ChannelHTTP, QueryRequest{Question: ""})
	assert.Zero(t, comp.calls)
}

func TestAsk_EventCarriesRequestAndRetrieval(t *testing.T) {
	sink := &recordingSink{err: errors.New("nats down")}
	comp := &fakeComposer{answer: composer.Answer{Text: "x", ToolCalled: true, Retrieval: retrieval.StatusNotFound}}
	svc := NewService(&fakeAnalyzer{report: vision.NoInsights}, normalize.New(), comp, sink)

	ctx := middleware.WithRequestID(context.Background(), "req-42")
	resp := svc.Ask(ctx, ChannelXMPP, QueryRequest{Question: "vpn", ImageData: "QUJD"})

	assert.Equal(t, "x", resp.Answer)
	require.Len(t, sink.events, 1)
	e := sink.events[0]
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, ChannelXMPP, e.Channel)
	assert.Equal(t, "not_found", e.RetrievalStatus)
	assert.True(t, e.HadImage)
	assert.False(t, e.Timestamp.IsZero())
}

type countingVisionModel struct{ calls int }

func (m *countingVisionModel) Generate(context.Context, llm.Request) (string, error) {
	m.calls++
	return "[OCR RAW TEXT]: should not be used", nil
}

func TestAsk_MalformedImageStillAnswers(t *testing.T) {
	model := &countingVisionModel{}
	comp := &fakeComposer{answer: composer.Answer{Text: "steps"}}
	resp := NewService(vision.New(model), normalize.New(), comp, nil).Ask(context.Background(), ChannelHTTP, QueryRequest{
		Question:  "what is this error",
		ImageData: "data:image/png;base64,@@@",
	})

	assert.Equal(t, "steps", resp.Answer)
	assert.Equal(t, vision.AnalysisFailed, comp.got.VisionReport)
	assert.Zero(t, model.calls)
}

func TestAsk_MissingVisionKeyStillAnswers(t *testing.T) {
	comp := &fakeComposer{answer: composer.Answer{Text: "steps"}}
	resp := NewService(vision.New(nil), normalize.New(), comp, nil).Ask(context.Background(), ChannelHTTP, QueryRequest{
		Question:  "what is this error",
		ImageData: "data:image/png;base64,iVBORw0KGgo=",
	})

	assert.Equal(t, "steps", resp.Answer)
	assert.Equal(t, vision.MissingKey, comp.got.VisionReport)
}

func TestHandler_Ask(t *testing.T) {
	comp := &fakeComposer{answer: composer.Answer{Text: "- Summary: file a report"}}
	h := NewHandler(NewService(&fakeAnalyzer{}, normalize.New(), comp, nil))

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"valid", `{"question":"laptop stolen","chat_history":["USER: hi"]}`, http.StatusOK, `{"answer":"- Summary: file a report"}`},
		{"history optional", `{"question":"vpn"}`, http.StatusOK, `{"answer":"- Summary: file a report"}`},
		{"malformed json", `{"question":`, http.StatusBadRequest, `{"error":"bad request"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body)))
			assert.Equal(t, tt.code, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
		})
	}
}

func TestHandler_AskRejectsOversizedFields(t *testing.T) {
	h := NewHandler(NewService(&fakeAnalyzer{}, normalize.New(), &fakeComposer{}, nil))

	tests := []struct {
		name string
		body string
		want string
	}{
		{"question", `{"question":"` + strings.Repeat("a", 4001) + `"}`, `{"error":"question too long"}`},
		{"history entry", `{"question":"q","chat_history":["` + strings.Repeat("a", 8001) + `"]}`, `{"error":"chat history too long"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.NotContains(t, rec.Body.String(), "QueryRequest")
		})
	}
}

func TestHandler_AskFailureIsStill200(t *testing.T) {
	comp := &fakeComposer{err: errors.New("relation \"it_documents\" does not exist")}
	h := NewHandler(NewService(&fakeAnalyzer{}, normalize.New(), comp, nil))

	rec := httptest.NewRecorder()
	h.Ask(rec, httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"question":"policy"}`)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "it_documents")
	assert.Contains(t, rec.Body.String(), "policy lookup")
}
