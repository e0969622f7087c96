package capture

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Session", func() {
	var session *Session

	BeforeEach(func() {
		session = NewSession()
	})

	It("starts without a device", func() {
		_, ok := session.Active()
		Expect(ok).To(BeFalse())
	})

	It("binds exclusively, releasing the previous device", func() {
		first := &mockDevice{name: "first"}
		second := &mockDevice{name: "second"}

		session.Bind(first)
		session.Bind(second)

		active, ok := session.Active()
		Expect(ok).To(BeTrue())
		Expect(active).To(BeIdenticalTo(second))
		Expect(first.closed.Load()).To(BeTrue())
		Expect(second.closed.Load()).To(BeFalse())
	})

	It("unbinds the active device", func() {
		dev := &mockDevice{name: "only"}
		session.Bind(dev)
		session.Unbind()

		_, ok := session.Active()
		Expect(ok).To(BeFalse())
		Expect(dev.closed.Load()).To(BeTrue())
	})
})

var _ = Describe("FileDevice", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("reads the file on every capture", func() {
		path := filepath.Join(tmpDir, "frame.png")
		Expect(os.WriteFile(path, []byte("first"), 0644)).To(Succeed())
		dev := NewFileDevice(path)

		frame, err := dev.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame.Data)).To(Equal("first"))
		Expect(frame.ContentType).To(Equal("image/png"))

		Expect(os.WriteFile(path, []byte("second"), 0644)).To(Succeed())
		frame, err = dev.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame.Data)).To(Equal("second"))
	})

	It("returns the error when the file is missing", func() {
		_, err := NewFileDevice(filepath.Join(tmpDir, "nope.jpg")).Capture(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("reading file"))
	})
})

var _ = Describe("DirectoryDevice", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("captures the newest image", func() {
		old := filepath.Join(tmpDir, "old.jpg")
		newer := filepath.Join(tmpDir, "new.heic")
		notes := filepath.Join(tmpDir, "notes.txt")
		Expect(os.WriteFile(old, []byte("old"), 0644)).To(Succeed())
		Expect(os.WriteFile(newer, []byte("new"), 0644)).To(Succeed())
		Expect(os.WriteFile(notes, []byte("ignored"), 0644)).To(Succeed())
		now := time.Now()
		Expect(os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour))).To(Succeed())
		Expect(os.Chtimes(newer, now, now)).To(Succeed())
		Expect(os.Chtimes(notes, now.Add(time.Hour), now.Add(time.Hour))).To(Succeed())

		frame, err := NewDirectoryDevice(tmpDir).Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame.Data)).To(Equal("new"))
		Expect(frame.ContentType).To(Equal("image/heic"))
	})

	It("returns the error when there are no images", func() {
		_, err := NewDirectoryDevice(tmpDir).Capture(context.Background())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("no images"))
	})
})

var _ = Describe("SnapshotDevice", func() {
	var server *ghttp.Server

	BeforeEach(func() {
		server = ghttp.NewServer()
	})

	AfterEach(func() {
		server.Close()
	})

	withUser := func(path string) string {
		return strings.Replace(server.URL(), "http://", "http://admin:12345@", 1) + path
	}

	It("fetches a snapshot with basic auth from the url", func() {
		server.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodGet, "/ISAPI/Streaming/channels/101/picture"),
			ghttp.VerifyBasicAuth("admin", "12345"),
			ghttp.RespondWith(http.StatusOK, "jpegbytes", http.Header{"Content-Type": {"image/jpeg"}}),
		))

		dev, err := NewSnapshotDevice(withUser("/ISAPI/Streaming/channels/101/picture"), time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev.Name()).NotTo(ContainSubstring("12345"))

		frame, err := dev.Capture(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(frame.Data)).To(Equal("jpegbytes"))
		Expect(frame.ContentType).To(Equal("image/jpeg"))
	})

	It("returns the error on a non-200 answer", func() {
		server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, ""))

		dev, err := NewSnapshotDevice(server.URL()+"/snap.jpg", time.Second)
		Expect(err).NotTo(HaveOccurred())
		_, err = dev.Capture(context.Background())
		Expect(err).To(MatchError(ContainSubstring("401")))
	})

	It("rejects non-http urls", func() {
		_, err := NewSnapshotDevice("rtsp://camera/stream", time.Second)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("OpenDevice", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	It("opens a file", func() {
		path := filepath.Join(tmpDir, "scan.jpg")
		Expect(os.WriteFile(path, []byte("x"), 0644)).To(Succeed())

		dev, err := OpenDevice("file:"+path, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev).To(BeAssignableToTypeOf(&FileDevice{}))

		dev, err = OpenDevice(path, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev).To(BeAssignableToTypeOf(&FileDevice{}))
	})

	It("opens a directory", func() {
		dev, err := OpenDevice("dir:"+tmpDir, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev).To(BeAssignableToTypeOf(&DirectoryDevice{}))

		dev, err = OpenDevice(tmpDir, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev).To(BeAssignableToTypeOf(&DirectoryDevice{}))
	})

	It("opens a snapshot url", func() {
		dev, err := OpenDevice("http://camera.local/snapshot.jpg", time.Second)
		Expect(err).NotTo(HaveOccurred())
		Expect(dev).To(BeAssignableToTypeOf(&SnapshotDevice{}))
	})

	It("returns the error for missing sources", func() {
		_, err := OpenDevice(filepath.Join(tmpDir, "missing.jpg"), 0)
		Expect(err).To(HaveOccurred())
		_, err = OpenDevice("", 0)
		Expect(err).To(HaveOccurred())
	})
})
