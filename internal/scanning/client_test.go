package scanning

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("NewClient", func() {
	DescribeTable("rejecting bad server urls",
		func(raw string) {
			_, err := NewClient(Config{BaseURL: raw})
			Expect(err).To(HaveOccurred())
		},
		Entry("empty", ""),
		Entry("no scheme", "www.scanai.live"),
		Entry("ftp", "ftp://scanai.live"),
		Entry("no host", "https://"),
	)

	It("should trim a trailing slash", func() {
		client, err := NewClient(Config{BaseURL: "https://www.scanai.live/"})
		Expect(err).NotTo(HaveOccurred())
		Expect(client.BaseURL()).To(Equal("https://www.scanai.live"))
	})
})

var _ = Describe("Client", func() {
	var (
		server *ghttp.Server
		client *Client
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		server = ghttp.NewServer()
		var err error
		client, err = NewClient(Config{BaseURL: server.URL()})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("Probe", func() {
		var result ProbeResult

		JustBeforeEach(func() {
			result = client.Probe(ctx)
		})

		When("the server answers 200", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/"),
					ghttp.RespondWith(http.StatusOK, "ok"),
				))
			})

			It("should report ready", func() {
				Expect(result.Status).To(Equal(StatusReady))
				Expect(result.Reachable()).To(BeTrue())
				Expect(result.Err).NotTo(HaveOccurred())
			})

			It("should send no credentials", func() {
				Expect(server.ReceivedRequests()).To(HaveLen(1))
				Expect(server.ReceivedRequests()[0].Header.Get("Authorization")).To(BeEmpty())
			})
		})

		When("the server answers 204", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusNoContent, nil))
			})

			It("should report ready", func() {
				Expect(result.Status).To(Equal(StatusReady))
			})
		})

		When("the server answers 503", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, "warming"))
			})

			It("should report unreachable", func() {
				Expect(result.Status).To(Equal(StatusUnreachable))
				Expect(result.StatusCode).To(Equal(http.StatusServiceUnavailable))
				Expect(result.Err).To(MatchError(ErrProbeUnreachable))
			})
		})

		When("the connection is refused", func() {
			BeforeEach(func() {
				server.Close()
			})

			It("should report unreachable without a status code", func() {
				Expect(result.Status).To(Equal(StatusUnreachable))
				Expect(result.StatusCode).To(BeZero())
				Expect(result.Err).To(MatchError(ErrProbeUnreachable))
			})
		})

		When("the server is slower than the configured timeout", func() {
			BeforeEach(func() {
				var err error
				client, err = NewClient(Config{BaseURL: server.URL(), Timeout: 50 * time.Millisecond})
				Expect(err).NotTo(HaveOccurred())
				server.AppendHandlers(func(w http.ResponseWriter, r *http.Request) {
					time.Sleep(300 * time.Millisecond)
				})
			})

			It("should report unreachable", func() {
				Expect(result.Status).To(Equal(StatusUnreachable))
			})
		})
	})

	Describe("Upload", func() {
		var (
			capture CaptureRequest
			result  *ScanResult
			err     error
		)

		BeforeEach(func() {
			capture = NewCaptureRequest([]byte{0xFF, 0xD8, 0xFF, 0xE0, 'j', 'p', 'g'}, time.Now())
		})

		JustBeforeEach(func() {
			result, err = client.Upload(ctx, capture)
		})

		When("the service returns a result", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodPost, "/upload"),
					func(w http.ResponseWriter, r *http.Request) {
						defer GinkgoRecover()
						Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
						f, header, err := r.FormFile("file")
						Expect(err).NotTo(HaveOccurred())
						defer f.Close()
						Expect(header.Filename).To(Equal("scan.jpg"))
						Expect(header.Header.Get("Content-Type")).To(Equal("image/jpeg"))
						data, err := io.ReadAll(f)
						Expect(err).NotTo(HaveOccurred())
						Expect(data).To(Equal(capture.Data))
					},
					ghttp.RespondWith(http.StatusOK, `{"sum": 42, "numbers": [1,2,3], "detected_text": "hello"}`),
				))
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should decode the result", func() {
				Expect(result).To(Equal(&ScanResult{Sum: 42, Numbers: []int{1, 2, 3}, DetectedText: "hello"}))
			})
		})

		When("credentials are configured", func() {
			BeforeEach(func() {
				var err error
				client, err = NewClient(Config{BaseURL: server.URL(), Username: "scan", Password: "secret"})
				Expect(err).NotTo(HaveOccurred())
				server.AppendHandlers(ghttp.CombineHandlers(
					ghttp.VerifyBasicAuth("scan", "secret"),
					ghttp.RespondWith(http.StatusOK, `{"sum": 0, "numbers": [], "detected_text": ""}`),
				))
			})

			It("should authenticate the upload", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})

		When("the response is missing sum", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `{"numbers": [1], "detected_text": "1"}`))
			})

			It("returns a malformed response error", func() {
				Expect(err).To(MatchError(ErrMalformedResponse))
				Expect(result).To(BeNil())
			})
		})

		When("the response body is empty", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusOK, nil))
			})

			It("returns a malformed response error", func() {
				Expect(err).To(MatchError(ErrMalformedResponse))
			})
		})

		When("the service answers 500", func() {
			BeforeEach(func() {
				server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, `{"sum": 1, "numbers": [1], "detected_text": "1"}`))
			})

			It("returns a transmission error without decoding", func() {
				Expect(err).To(MatchError(ErrTransmission))
				Expect(err.Error()).To(ContainSubstring("500"))
				Expect(result).To(BeNil())
			})
		})

		When("the connection is refused", func() {
			BeforeEach(func() {
				server.Close()
			})

			It("returns a transmission error", func() {
				Expect(err).To(MatchError(ErrTransmission))
				Expect(result).To(BeNil())
			})
		})

		When("the frame is empty", func() {
			BeforeEach(func() {
				capture.Data = nil
			})

			It("returns a capture error without calling the service", func() {
				Expect(err).To(MatchError(ErrCapture))
				Expect(server.ReceivedRequests()).To(BeEmpty())
			})
		})
	})
})

var _ = Describe("NewCaptureRequest", func() {
	It("should use the contract filename and a unique id", func() {
		a := NewCaptureRequest([]byte("a"), time.Now())
		b := NewCaptureRequest([]byte("b"), time.Now())
		Expect(a.Filename).To(Equal("scan.jpg"))
		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
		Expect(a.ArchiveKey()).To(Equal("captures/" + a.ID + ".jpg"))
	})
})

var _ = Describe("snippet", func() {
	It("keeps short bodies whole", func() {
		Expect(snippet([]byte("  bad gateway \n"))).To(Equal("bad gateway"))
	})

	It("cuts long bodies on a rune boundary", func() {
		body := strings.Repeat("a", 255) + "é" + strings.Repeat("b", 10)
		s := snippet([]byte(body))
		Expect(utf8.ValidString(s)).To(BeTrue())
		Expect(s).To(Equal(strings.Repeat("a", 255) + "..."))
	})
})
