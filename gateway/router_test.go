package gateway_test

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/tidwall/gjson"

	"github.com/luma/rconctl/client"
	"github.com/luma/rconctl/gateway"
	"github.com/luma/rconctl/internal/rcontest"
	"github.com/luma/rconctl/storage"
)

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

var _ = Describe("Router", func() {
	var (
		session *client.Session
		store   *storage.InmemoryStore
		router  *gin.Engine
	)

	BeforeEach(func() {
		conn := rcontest.NewConn(rcontest.Game(rcontest.GameOptions{
			Password:     "pw",
			FragmentSize: 5,
			Commands: map[string]string{
				"list": "There are 2 of a max of 20 players online: alice, bob",
			},
		}))
		session = client.New(conn, client.Options{WriteBufferSize: 64})
		Expect(session.AuthenticateOrFail("pw")).To(Succeed())

		store = storage.NewInmemoryStore(10)
		router = gateway.NewRouter(gateway.Options{
			Commander: session,
			Store:     store,
		})
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
		Expect(session.Close()).To(Succeed())
	})

	It("answers pings", func() {
		w := do(router, http.MethodGet, "/ping", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("pong"))
	})

	Describe("POST /exec", func() {
		It("returns the reassembled command output", func() {
			w := do(router, http.MethodPost, "/exec", `{"command":"list"}`)
			Expect(w.Code).To(Equal(http.StatusOK))

			Expect(gjson.Get(w.Body.String(), "command").String()).To(Equal("list"))
			Expect(gjson.Get(w.Body.String(), "output").String()).To(
				Equal("There are 2 of a max of 20 players online: alice, bob"))
		})

		It("uses the single packet path when asked to", func() {
			w := do(router, http.MethodPost, "/exec", `{"command":"list","simple":true}`)
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(gjson.Get(w.Body.String(), "output").String()).To(Equal("There"))
		})

		It("records every exchange in the transcript", func() {
			do(router, http.MethodPost, "/exec", `{"command":"list"}`)
			do(router, http.MethodPost, "/exec", `{"command":"seed"}`)

			w := do(router, http.MethodGet, "/transcript?path=entries.%23.command", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal(`["list","seed"]`))

			w = do(router, http.MethodGet, "/transcript", "")
			Expect(gjson.Get(w.Body.String(), "entries.1.output").String()).To(Equal("Unknown command: seed"))
			Expect(gjson.Get(w.Body.String(), "entries.1.kind").String()).To(Equal(storage.KindCommand))
		})

		It("rejects requests without a command", func() {
			Expect(do(router, http.MethodPost, "/exec", `{}`).Code).To(Equal(http.StatusBadRequest))
			Expect(do(router, http.MethodPost, "/exec", `{"command":""}`).Code).To(Equal(http.StatusBadRequest))
			Expect(do(router, http.MethodPost, "/exec", `{"command":1}`).Code).To(Equal(http.StatusBadRequest))
			Expect(do(router, http.MethodPost, "/exec", `nope`).Code).To(Equal(http.StatusBadRequest))
		})

		It("maps oversized commands to 413", func() {
			w := do(router, http.MethodPost, "/exec", `{"command":"`+strings.Repeat("x", 100)+`"}`)
			Expect(w.Code).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(gjson.Get(w.Body.String(), "error").String()).NotTo(BeEmpty())
		})

		It("maps a closed session to 503", func() {
			Expect(session.Close()).To(Succeed())

			w := do(router, http.MethodPost, "/exec", `{"command":"list"}`)
			Expect(w.Code).To(Equal(http.StatusServiceUnavailable))

			w = do(router, http.MethodGet, "/transcript?path=entries.0.error", "")
			Expect(w.Body.String()).To(ContainSubstring("Session is closed"))
		})
	})

	Describe("GET /transcript/updates", func() {
		It("streams every recorded exchange until the store closes", func() {
			server := httptest.NewServer(router)
			defer server.Close()

			resp, err := http.Get(server.URL + "/transcript/updates")
			Expect(err).To(Succeed())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			Expect(do(router, http.MethodPost, "/exec", `{"command":"list"}`).Code).To(Equal(http.StatusOK))

			lines := bufio.NewScanner(resp.Body)
			var data string
			for lines.Scan() {
				if strings.HasPrefix(lines.Text(), "data:") {
					data = strings.TrimPrefix(lines.Text(), "data:")
					break
				}
			}
			Expect(gjson.Get(data, "command").String()).To(Equal("list"))
			Expect(gjson.Get(data, "kind").String()).To(Equal(storage.KindCommand))

			Expect(store.Close()).To(Succeed())
			for lines.Scan() {
			}
			Expect(lines.Err()).To(Succeed())
		})
	})

	Describe("GET /transcript", func() {
		It("returns null for a missing path", func() {
			w := do(router, http.MethodGet, "/transcript?path=entries.3", "")
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("null"))
		})
	})
})

var _ = Describe("Router without a store", func() {
	It("does not serve a transcript", func() {
		conn := rcontest.NewConn(rcontest.Game(rcontest.GameOptions{Password: "pw"}))
		session := client.New(conn, client.Options{})
		Expect(session.AuthenticateOrFail("pw")).To(Succeed())

		router := gateway.NewRouter(gateway.Options{Commander: session})

		Expect(do(router, http.MethodPost, "/exec", `{"command":"list"}`).Code).To(Equal(http.StatusOK))
		Expect(do(router, http.MethodGet, "/transcript", "").Code).To(Equal(http.StatusNotFound))
		Expect(do(router, http.MethodGet, "/transcript/updates", "").Code).To(Equal(http.StatusNotFound))
	})
})
