package youtube

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/TubeSage/internal/core/errs"
	"github.com/markdave123-py/TubeSage/internal/models"
)

func testClient(srv *httptest.Server) *Client {
	return &Client{http: srv.Client(), timedtext: srv.URL}
}

const sampleTrackList = `<?xml version="1.0" encoding="utf-8"?>
<transcript_list docid="123">
  <track id="0" name="" lang_code="en" lang_original="English"/>
  <track id="1" name="" lang_code="en" kind="asr" lang_original="English"/>
  <track id="2" name="" lang_code="fr" lang_original="French"/>
  <target id="3" lang_code="de"/>
  <target id="4" lang_code="es"/>
</transcript_list>`

func TestListTranscriptsSplitsTiers(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "list", r.URL.Query().Get("type"))
		assert.Equal(t, "vid1", r.URL.Query().Get("v"))
		w.Write([]byte(sampleTrackList))
	}))
	defer srv.Close()

	catalog, err := testClient(srv).ListTranscripts(context.Background(), "vid1")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, catalog.Manual)
	assert.Equal(t, []string{"en"}, catalog.Generated)
	assert.Equal(t, []string{"de", "es"}, catalog.Translatable)
}

const sampleJSON3 = `{"events":[
  {"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"hello "},{"utf8":"world"}]},
  {"tStartMs":1500,"dDurationMs":500,"segs":[{"utf8":"\n"}]},
  {"tStartMs":2000,"dDurationMs":3000,"segs":[{"utf8":"second line"}]}
]}`

func TestFetchTranscriptParsesSegments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json3", r.URL.Query().Get("fmt"))
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		assert.Equal(t, "asr", r.URL.Query().Get("kind"))
		w.Write([]byte(sampleJSON3))
	}))
	defer srv.Close()

	segs, err := testClient(srv).FetchTranscript(context.Background(), models.TranscriptHandle{
		VideoID: "vid1", Language: "en", Tier: models.TierGenerated,
	})
	require.NoError(t, err)
	require.Len(t, segs, 2, "whitespace-only events are dropped")
	assert.Equal(t, "hello world", segs[0].Text)
	assert.Equal(t, int64(0), segs[0].StartMs)
	assert.Equal(t, int64(1500), segs[0].EndMs)
	assert.Equal(t, "second line", segs[1].Text)
	assert.Equal(t, int64(2000), segs[1].StartMs)
	assert.Equal(t, int64(5000), segs[1].EndMs)
}

func TestFetchTranscriptTranslatedQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "de", r.URL.Query().Get("tlang"))
		w.Write([]byte(sampleJSON3))
	}))
	defer srv.Close()

	_, err := testClient(srv).FetchTranscript(context.Background(), models.TranscriptHandle{
		VideoID: "vid1", Language: "de", Tier: models.TierTranslated,
	})
	require.NoError(t, err)
}

func TestFetchTranscriptEmptyBodyIsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	_, err := testClient(srv).FetchTranscript(context.Background(), models.TranscriptHandle{
		VideoID: "vid1", Language: "en", Tier: models.TierManual,
	})
	require.ErrorIs(t, err, errs.ErrNoTranscript)
}

func TestTimedtextStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, errs.ErrRateLimited},
		{http.StatusNotFound, errs.ErrNoTranscript},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		_, err := testClient(srv).ListTranscripts(context.Background(), "vid1")
		assert.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	_, err := testClient(srv).ListTranscripts(context.Background(), "vid1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errs.ErrNoTranscript)
}
