package history

import (
	"context"
	"net/url"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("LocalStorage", func() {
	var (
		tmpDir  string
		storage Storage
		ctx     context.Context
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		ctx = context.Background()
		var err error
		storage, err = NewLocalStorage(tmpDir)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("Archive", func() {
		var (
			key       string
			data      []byte
			savedPath string
			err       error
		)

		BeforeEach(func() {
			key = "captures/abc.jpg"
			data = []byte("test file content")
		})

		JustBeforeEach(func() {
			savedPath, err = storage.Archive(ctx, key, data, "image/jpeg")
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the file below the base path", func() {
				Expect(savedPath).To(Equal(filepath.Join(tmpDir, "captures", "abc.jpg")))
				Expect(savedPath).To(BeAnExistingFile())
			})

			It("can be read back", func() {
				got, getErr := storage.Get(ctx, key)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(got).To(Equal(data))
			})
		})

		When("the key escapes the base path", func() {
			BeforeEach(func() {
				key = "../outside.jpg"
			})

			It("returns an error", func() {
				Expect(err).To(MatchError(ContainSubstring("invalid archive key")))
			})
		})

		When("the key is empty", func() {
			BeforeEach(func() {
				key = ""
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("Get", func() {
		When("file does not exist", func() {
			It("returns an error", func() {
				_, err := storage.Get(ctx, "captures/missing.jpg")
				Expect(err).To(HaveOccurred())
			})
		})
	})
})

var _ = Describe("objectURL", func() {
	It("uses the public base url when set", func() {
		base, err := url.Parse("https://cdn.example.com/scans/")
		Expect(err).NotTo(HaveOccurred())
		Expect(objectURL(base, false, "minio:9000", "bucket", "captures/a.jpg")).
			To(Equal("https://cdn.example.com/scans/captures/a.jpg"))
	})

	It("falls back to the endpoint", func() {
		Expect(objectURL(nil, true, "minio:9000", "bucket", "captures/a.jpg")).
			To(Equal("https://minio:9000/bucket/captures/a.jpg"))
		Expect(objectURL(nil, false, "minio:9000", "bucket", "captures/a.jpg")).
			To(Equal("http://minio:9000/bucket/captures/a.jpg"))
	})
})

var _ = Describe("NewMinioStorage", func() {
	It("requires credentials", func() {
		_, err := NewMinioStorage(context.Background(), MinioConfig{Endpoint: "localhost:9000", Bucket: "b"})
		Expect(err).To(MatchError(ContainSubstring("access key")))
	})

	It("requires a bucket", func() {
		_, err := NewMinioStorage(context.Background(), MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"})
		Expect(err).To(MatchError("minio bucket is required"))
	})
})
