package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/Leopold1975/recipes_control/internal/pkg/config"
	"github.com/Leopold1975/recipes_control/internal/recipes/domain/models"
	"github.com/Leopold1975/recipes_control/internal/recipes/repository/memory"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/authservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/catalogservice"
	"github.com/Leopold1975/recipes_control/internal/recipes/services/recipeservice"
	"github.com/Leopold1975/recipes_control/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"
)

type discardImages struct {
	paths []string
}

func (d *discardImages) Save(_ context.Context, path, _ string, body io.Reader, _ int64) error {
	if _, err := io.Copy(io.Discard, body); err != nil {
		return err
	}

	d.paths = append(d.paths, path)

	return nil
}

type ServerSuite struct {
	suite.Suite
	store  *memory.Store
	images *discardImages
	srv    *Server
	h      http.Handler
}

func (s *ServerSuite) SetupTest() {
	s.store = memory.New()
	s.images = &discardImages{}

	lg := logger.Nop()
	authCfg := config.Auth{TTL: time.Hour, Secret: "test-secret", LoginRate: 100, LoginBurst: 100}

	s.srv = New(config.Server{
		BaseURL:       "/v1",
		MaxBodySize:   4096,
		MaxUploadSize: 1 << 20,
		MediaURL:      "/media/",
		IdleTimeout:   time.Second,
	}, authCfg, Services{
		Auth:    authservice.New(s.store, nil, authCfg, lg),
		Catalog: catalogservice.New(s.store, lg),
		Recipes: recipeservice.New(s.store, s.images, lg),
	}, prometheus.NewRegistry(), lg)
	s.h = s.srv.Handler()
}

func (s *ServerSuite) TearDownTest() {
	s.srv.limiter.Stop()
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

type response struct {
	code   int
	header http.Header
	body   []byte
}

func (r response) decode(v any) error {
	return json.Unmarshal(r.body, v)
}

func (s *ServerSuite) do(method, path, token string, body any) response {
	var rd io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		bts, err := json.Marshal(b)
		s.Require().NoError(err)

		rd = bytes.NewReader(bts)
	}

	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	return response{code: rec.Code, header: rec.Header(), body: rec.Body.Bytes()}
}

// signup registers a user and returns its token.
func (s *ServerSuite) signup(email string) string {
	resp := s.do(http.MethodPost, "/v1/users", "", map[string]string{
		"email": email, "password": "secret1", "name": "Test",
	})
	s.Require().Equal(http.StatusCreated, resp.code, string(resp.body))

	resp = s.do(http.MethodPost, "/v1/users/token", "", map[string]string{
		"email": email, "password": "secret1",
	})
	s.Require().Equal(http.StatusOK, resp.code, string(resp.body))

	var tr TokenResponse
	s.Require().NoError(resp.decode(&tr))
	s.Require().NotEmpty(tr.Token)

	return tr.Token
}

type recipeBody struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description *string         `json:"description"`
	Price       string          `json:"price"`
	Image       *string         `json:"image"`
	Tags        []EntryResponse `json:"tags"`
	Ingredients []EntryResponse `json:"ingredients"`
}

func (s *ServerSuite) createRecipe(token string, body map[string]any) recipeBody {
	resp := s.do(http.MethodPost, "/v1/recipes", token, body)
	s.Require().Equal(http.StatusCreated, resp.code, string(resp.body))

	var rb recipeBody
	s.Require().NoError(resp.decode(&rb))

	return rb
}

func (s *ServerSuite) TestEndToEndIngredientReuse() {
	token := s.signup("a@example.com")

	body := map[string]any{
		"title": "X", "time_minutes": 5, "price": 4.50,
		"ingredients": []map[string]string{{"name": "Salt"}},
	}

	first := s.createRecipe(token, body)
	s.Require().Len(first.Ingredients, 1)
	s.Equal("Salt", first.Ingredients[0].Name)
	s.Equal("4.50", first.Price)

	second := s.createRecipe(token, body)
	s.Require().Len(second.Ingredients, 1)
	s.Equal(first.Ingredients[0].ID, second.Ingredients[0].ID)

	resp := s.do(http.MethodGet, "/v1/ingredients", token, nil)
	s.Require().Equal(http.StatusOK, resp.code)

	var entries []EntryResponse
	s.Require().NoError(resp.decode(&entries))
	s.Len(entries, 1)

	u, err := s.store.GetUserByEmail(context.Background(), "a@example.com")
	s.Require().NoError(err)
	s.Equal(1, s.store.CountEntries(models.KindIngredient, u.ID))
}

func (s *ServerSuite) TestGuardedRoutesRequireToken() {
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/users/me"},
		{http.MethodGet, "/v1/tags"},
		{http.MethodPost, "/v1/ingredients"},
		{http.MethodGet, "/v1/recipes"},
		{http.MethodGet, "/v1/recipes/abc"},
		{http.MethodPost, "/v1/recipes/1/image"},
	} {
		resp := s.do(tc.method, tc.path, "", nil)
		s.Equal(http.StatusUnauthorized, resp.code, tc.path)
		s.Equal("Token", resp.header.Get("WWW-Authenticate"))
	}

	resp := s.do(http.MethodGet, "/v1/recipes", "garbage", nil)
	s.Equal(http.StatusUnauthorized, resp.code)
}

func (s *ServerSuite) TestBearerSchemeAccepted() {
	token := s.signup("b@example.com")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)
	s.Require().Equal(http.StatusOK, rec.Code)

	var ur UserResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &ur))
	s.Equal("b@example.com", ur.Email)
}

func (s *ServerSuite) TestRegisterValidation() {
	resp := s.do(http.MethodPost, "/v1/users", "", map[string]string{
		"email": "not-an-email", "password": "1234", "name": "N",
	})
	s.Require().Equal(http.StatusBadRequest, resp.code)

	var e Error
	s.Require().NoError(resp.decode(&e))
	s.Contains(e.Fields, "email")
	s.Contains(e.Fields, "password")

	s.signup("dup@example.com")

	resp = s.do(http.MethodPost, "/v1/users", "", map[string]string{
		"email": "dup@example.com", "password": "secret1", "name": "N",
	})
	s.Equal(http.StatusBadRequest, resp.code)
}

func (s *ServerSuite) TestBadCredentials() {
	s.signup("c@example.com")

	resp := s.do(http.MethodPost, "/v1/users/token", "", map[string]string{
		"email": "c@example.com", "password": "wrong",
	})
	s.Require().Equal(http.StatusBadRequest, resp.code)

	var e Error
	s.Require().NoError(resp.decode(&e))
	s.Contains(e.Fields, "non_field_errors")
}

func (s *ServerSuite) TestMalformedBody() {
	token := s.signup("m@example.com")

	resp := s.do(http.MethodPost, "/v1/recipes", token, "{not json")
	s.Equal(http.StatusBadRequest, resp.code)
}

func (s *ServerSuite) TestBodyTooLarge() {
	token := s.signup("big@example.com")

	resp := s.do(http.MethodPost, "/v1/recipes", token, map[string]any{
		"title": strings.Repeat("t", 8192), "time_minutes": 1, "price": 1,
	})
	s.Require().Equal(http.StatusRequestEntityTooLarge, resp.code, string(resp.body))

	resp = s.do(http.MethodGet, "/v1/recipes", token, nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.JSONEq(`[]`, string(resp.body))
}

func (s *ServerSuite) TestTimeMinutesOutOfRange() {
	token := s.signup("slow@example.com")

	resp := s.do(http.MethodPost, "/v1/recipes", token, `{"title":"t","time_minutes":99999999999,"price":1}`)
	s.Require().Equal(http.StatusBadRequest, resp.code, string(resp.body))

	var e Error
	s.Require().NoError(resp.decode(&e))
	s.Equal([]string{"Ensure this value is less than or equal to 2147483647."}, e.Fields["time_minutes"])

	resp = s.do(http.MethodGet, "/v1/recipes", token, nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.JSONEq(`[]`, string(resp.body))
}

func (s *ServerSuite) TestUpdateMe() {
	token := s.signup("me@example.com")

	resp := s.do(http.MethodPatch, "/v1/users/me", token, map[string]string{"name": "New Name"})
	s.Require().Equal(http.StatusOK, resp.code, string(resp.body))

	var ur UserResponse
	s.Require().NoError(resp.decode(&ur))
	s.Equal("New Name", ur.Name)

	resp = s.do(http.MethodPut, "/v1/users/me", token, map[string]string{"name": "Only"})
	s.Equal(http.StatusBadRequest, resp.code)
}

func (s *ServerSuite) TestTagsScopedToOwner() {
	alice := s.signup("alice@example.com")
	bob := s.signup("bob@example.com")

	resp := s.do(http.MethodPost, "/v1/tags", alice, map[string]string{"name": "Vegan"})
	s.Require().Equal(http.StatusCreated, resp.code)

	var tag EntryResponse
	s.Require().NoError(resp.decode(&tag))

	resp = s.do(http.MethodGet, "/v1/tags", bob, nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.JSONEq(`[]`, string(resp.body))

	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/v1/tags/"+itoa(tag.ID), bob, nil).code)
	s.Equal(http.StatusNotFound, s.do(http.MethodPatch, "/v1/tags/"+itoa(tag.ID), bob,
		map[string]string{"name": "x"}).code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, "/v1/tags/"+itoa(tag.ID), bob, nil).code)

	resp = s.do(http.MethodPut, "/v1/tags/"+itoa(tag.ID), alice, map[string]string{})
	s.Equal(http.StatusBadRequest, resp.code)

	resp = s.do(http.MethodPatch, "/v1/tags/"+itoa(tag.ID), alice, map[string]string{"name": "Vegetarian"})
	s.Require().Equal(http.StatusOK, resp.code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, "/v1/tags/"+itoa(tag.ID), alice, nil).code)
}

func (s *ServerSuite) TestAssignedOnly() {
	token := s.signup("ao@example.com")

	s.createRecipe(token, map[string]any{
		"title": "A", "time_minutes": 1, "price": "1.00", "tags": []map[string]string{{"name": "Used"}},
	})
	s.createRecipe(token, map[string]any{
		"title": "B", "time_minutes": 1, "price": "1.00", "tags": []map[string]string{{"name": "Used"}},
	})
	s.Require().Equal(http.StatusCreated,
		s.do(http.MethodPost, "/v1/tags", token, map[string]string{"name": "Idle"}).code)

	resp := s.do(http.MethodGet, "/v1/tags?assigned_only=1", token, nil)
	s.Require().Equal(http.StatusOK, resp.code)

	var entries []EntryResponse
	s.Require().NoError(resp.decode(&entries))
	s.Require().Len(entries, 1)
	s.Equal("Used", entries[0].Name)

	resp = s.do(http.MethodGet, "/v1/tags?assigned_only=0", token, nil)
	s.Require().NoError(resp.decode(&entries))
	s.Len(entries, 2)

	resp = s.do(http.MethodGet, "/v1/tags?assigned_only=yes", token, nil)
	s.Equal(http.StatusBadRequest, resp.code)
}

func (s *ServerSuite) TestRecipeListAndDetailViews() {
	token := s.signup("views@example.com")

	rb := s.createRecipe(token, map[string]any{
		"title": "Curry", "time_minutes": 30, "price": "12.5", "description": "hot",
		"tags": []map[string]string{{"name": "Thai"}},
	})
	s.Require().NotNil(rb.Description)
	s.Equal("hot", *rb.Description)
	s.Nil(rb.Image)

	other := s.createRecipe(token, map[string]any{"title": "Toast", "time_minutes": 2, "price": 1})

	resp := s.do(http.MethodGet, "/v1/recipes", token, nil)
	s.Require().Equal(http.StatusOK, resp.code)

	var list []map[string]any
	s.Require().NoError(resp.decode(&list))
	s.Require().Len(list, 2)
	s.EqualValues(other.ID, list[0]["id"])
	s.NotContains(list[0], "description")
	s.NotContains(list[0], "image")

	resp = s.do(http.MethodGet, "/v1/recipes?tags="+itoa(rb.Tags[0].ID), token, nil)
	s.Require().NoError(resp.decode(&list))
	s.Len(list, 1)

	resp = s.do(http.MethodGet, "/v1/recipes?tags=1,x", token, nil)
	s.Equal(http.StatusBadRequest, resp.code)
}

func (s *ServerSuite) TestRecipeUpdateSemantics() {
	token := s.signup("upd@example.com")

	rb := s.createRecipe(token, map[string]any{
		"title": "Curry", "time_minutes": 30, "price": "12.50",
		"tags": []map[string]string{{"name": "Thai"}},
	})
	path := "/v1/recipes/" + itoa(rb.ID)

	resp := s.do(http.MethodPatch, path, token, map[string]any{"title": "Green curry"})
	s.Require().Equal(http.StatusOK, resp.code, string(resp.body))

	var got recipeBody
	s.Require().NoError(resp.decode(&got))
	s.Equal("Green curry", got.Title)
	s.Len(got.Tags, 1)

	resp = s.do(http.MethodPatch, path, token, map[string]any{"tags": []any{}})
	s.Require().Equal(http.StatusOK, resp.code)
	s.Require().NoError(resp.decode(&got))
	s.Empty(got.Tags)

	resp = s.do(http.MethodPut, path, token, map[string]any{"title": "No price"})
	s.Equal(http.StatusBadRequest, resp.code)

	other := s.signup("other@example.com")
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, other, nil).code)
	s.Equal(http.StatusNotFound, s.do(http.MethodDelete, path, other, nil).code)

	s.Equal(http.StatusNoContent, s.do(http.MethodDelete, path, token, nil).code)
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, path, token, nil).code)
}

func (s *ServerSuite) upload(path, token, filename string, data []byte) response {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	if filename != "" {
		fw, err := mw.CreateFormFile(imageField, filename)
		s.Require().NoError(err)

		_, err = fw.Write(data)
		s.Require().NoError(err)
	}

	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Token "+token)

	rec := httptest.NewRecorder()
	s.h.ServeHTTP(rec, req)

	return response{code: rec.Code, header: rec.Header(), body: rec.Body.Bytes()}
}

func (s *ServerSuite) TestUploadImage() {
	token := s.signup("img@example.com")
	rb := s.createRecipe(token, map[string]any{"title": "Pic", "time_minutes": 1, "price": 1})
	path := "/v1/recipes/" + itoa(rb.ID) + "/image"

	var pic bytes.Buffer
	s.Require().NoError(encodePNG(&pic))

	resp := s.upload(path, token, "photo.JPG.png", pic.Bytes())
	s.Require().Equal(http.StatusOK, resp.code, string(resp.body))

	var ir ImageResponse
	s.Require().NoError(resp.decode(&ir))
	s.Equal(rb.ID, ir.ID)
	s.Require().NotNil(ir.Image)
	s.True(strings.HasPrefix(*ir.Image, "/media/uploads/recipe/"))
	s.True(strings.HasSuffix(*ir.Image, ".png"))
	s.Require().Len(s.images.paths, 1)

	resp = s.do(http.MethodGet, "/v1/recipes/"+itoa(rb.ID), token, nil)

	var got recipeBody
	s.Require().NoError(resp.decode(&got))
	s.Equal(ir.Image, got.Image)

	resp = s.upload(path, token, "notes.txt", []byte("plain text"))
	s.Equal(http.StatusBadRequest, resp.code)

	resp = s.upload(path, token, "", nil)
	s.Equal(http.StatusBadRequest, resp.code)

	other := s.signup("img2@example.com")
	resp = s.upload(path, other, "a.png", pic.Bytes())
	s.Equal(http.StatusNotFound, resp.code)
	s.Len(s.images.paths, 1)
}

func (s *ServerSuite) TestHealthAndMetrics() {
	resp := s.do(http.MethodGet, "/healthz", "", nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.JSONEq(`{"status":"ok"}`, string(resp.body))

	s.do(http.MethodGet, "/v1/tags", "", nil)

	resp = s.do(http.MethodGet, "/metrics", "", nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.Contains(string(resp.body), `recipes_http_requests_total{method="GET",route="/v1/tags",status="401"} 1`)
}

func (s *ServerSuite) TestLoginRateLimited() {
	lg := logger.Nop()
	authCfg := config.Auth{TTL: time.Hour, Secret: "x", LoginRate: 0.001, LoginBurst: 1}
	srv := New(config.Server{BaseURL: "/v1", IdleTimeout: time.Second}, authCfg, Services{
		Auth:    authservice.New(s.store, nil, authCfg, lg),
		Catalog: catalogservice.New(s.store, lg),
		Recipes: recipeservice.New(s.store, s.images, lg),
	}, prometheus.NewRegistry(), lg)
	defer srv.limiter.Stop()

	s.h = srv.Handler()

	body := map[string]string{"email": "x@example.com", "password": "nope1"}
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, "/v1/users/token", "", body).code)

	resp := s.do(http.MethodPost, "/v1/users/token", "", body)
	s.Equal(http.StatusTooManyRequests, resp.code)
	s.NotEmpty(resp.header.Get("Retry-After"))
}

func encodePNG(w io.Writer) error {
	return png.Encode(w, image.NewGray(image.Rect(0, 0, 1, 1)))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *ServerSuite) TestMediaMount() {
	lg := logger.Nop()
	authCfg := config.Auth{TTL: time.Hour, Secret: "x", LoginRate: 1, LoginBurst: 1}
	media := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(r.URL.Path)) //nolint:errcheck
	})

	srv := New(config.Server{BaseURL: "/v1", MediaURL: "/media/", IdleTimeout: time.Second}, authCfg, Services{
		Auth:    authservice.New(s.store, nil, authCfg, lg),
		Catalog: catalogservice.New(s.store, lg),
		Recipes: recipeservice.New(s.store, s.images, lg),
		Media:   media,
	}, prometheus.NewRegistry(), lg)
	defer srv.limiter.Stop()

	s.h = srv.Handler()

	resp := s.do(http.MethodGet, "/media/uploads/recipe/a.png", "", nil)
	s.Require().Equal(http.StatusOK, resp.code)
	s.Equal("/uploads/recipe/a.png", string(resp.body))
}
