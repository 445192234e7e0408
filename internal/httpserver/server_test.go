package httpserver_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/llm-gateway/internal/httpserver"
)

var _ = Describe("HTTP Server", func() {
	noop := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	DescribeTable("address validation",
		func(addr string, valid bool) {
			srv, err := httpserver.New(addr, noop, nil)
			if valid {
				Expect(err).NotTo(HaveOccurred())
				Expect(srv.Addr()).To(Equal(addr))
			} else {
				Expect(err).To(HaveOccurred())
				Expect(srv).To(BeNil())
			}
		},
		Entry("host and port", "localhost:9090", true),
		Entry("IP address", "127.0.0.1:9090", true),
		Entry("port only", ":9090", true),
		Entry("too many colons", "invalid:host:port", false),
		Entry("missing port", "localhost", false),
		Entry("empty port", "localhost:", false),
		Entry("port out of range", ":70000", false),
		Entry("bad host", "bad_host!:9090", false),
	)

	Context("lifecycle", func() {
		var (
			srv  *httpserver.Server
			ln   net.Listener
			errs chan error
		)

		BeforeEach(func() {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte("ok"))
			})

			var err error
			srv, err = httpserver.New("127.0.0.1:9090", handler, nil)
			Expect(err).NotTo(HaveOccurred())
			ln, err = net.Listen("tcp", "127.0.0.1:0")
			Expect(err).NotTo(HaveOccurred())

			errs = make(chan error, 1)
			server, listener, served := srv, ln, errs
			go func() {
				served <- server.Serve(listener)
			}()
		})

		It("should serve requests", func() {
			resp, err := http.Get("http://" + ln.Addr().String())
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(Equal("ok"))

			Expect(srv.Shutdown(context.Background())).To(Succeed())
		})

		It("should return nil from Serve after a graceful shutdown", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()

			Expect(srv.Shutdown(ctx)).To(Succeed())
			Eventually(errs).Should(Receive(BeNil()))
		})
	})
})
