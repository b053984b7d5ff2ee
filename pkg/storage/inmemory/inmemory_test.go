package inmemory_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/storage"
	"github.com/papercomputeco/treeagent/pkg/storage/inmemory"
)

var _ = Describe("Driver", func() {
	var (
		driver *inmemory.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a record", func() {
			Expect(driver.Put(ctx, "memory", "1", []byte(`{"id":1}`))).To(Succeed())

			value, err := driver.Get(ctx, "memory", "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(value)).To(Equal(`{"id":1}`))
		})

		It("returns NotFoundError for a missing key", func() {
			_, err := driver.Get(ctx, "memory", "missing")
			Expect(err).To(BeAssignableToTypeOf(storage.NotFoundError{}))
		})

		It("isolates buckets", func() {
			Expect(driver.Put(ctx, "memory", "k", []byte("a"))).To(Succeed())
			_, err := driver.Get(ctx, "concepts", "k")
			Expect(err).To(HaveOccurred())
		})

		It("rejects empty keys", func() {
			Expect(driver.Put(ctx, "memory", "", []byte("a"))).NotTo(Succeed())
		})

		It("does not alias the caller's buffer", func() {
			buf := []byte("abc")
			Expect(driver.Put(ctx, "memory", "k", buf)).To(Succeed())
			buf[0] = 'z'

			value, err := driver.Get(ctx, "memory", "k")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(value)).To(Equal("abc"))
		})
	})

	Describe("List", func() {
		It("keeps first-insertion order across upserts", func() {
			Expect(driver.Put(ctx, "concepts", "b", []byte("1"))).To(Succeed())
			Expect(driver.Put(ctx, "concepts", "a", []byte("2"))).To(Succeed())
			Expect(driver.Put(ctx, "concepts", "b", []byte("3"))).To(Succeed())

			records, err := driver.List(ctx, "concepts")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Key).To(Equal("b"))
			Expect(string(records[0].Value)).To(Equal("3"))
			Expect(records[1].Key).To(Equal("a"))
		})

		It("returns an empty slice for an unknown bucket", func() {
			records, err := driver.List(ctx, "nothing")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		It("removes the record from Get and List", func() {
			Expect(driver.Put(ctx, "memory", "a", []byte("1"))).To(Succeed())
			Expect(driver.Put(ctx, "memory", "b", []byte("2"))).To(Succeed())
			Expect(driver.Delete(ctx, "memory", "a")).To(Succeed())

			_, err := driver.Get(ctx, "memory", "a")
			Expect(err).To(HaveOccurred())

			records, err := driver.List(ctx, "memory")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(driver.Count("memory")).To(Equal(1))
		})

		It("is a no-op for missing keys", func() {
			Expect(driver.Delete(ctx, "memory", "missing")).To(Succeed())
		})
	})

	Describe("Batch", func() {
		It("applies puts and deletes in order", func() {
			Expect(driver.Put(ctx, "memory", "old", []byte("x"))).To(Succeed())

			Expect(driver.Batch(ctx, []storage.Op{
				{Bucket: "memory", Key: "1", Value: []byte("one")},
				{Bucket: "memory", Key: "old", Delete: true},
				{Bucket: "memory", Key: "1", Value: []byte("uno")},
			})).To(Succeed())

			records, err := driver.List(ctx, "memory")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Key).To(Equal("1"))
			Expect(string(records[0].Value)).To(Equal("uno"))
		})

		It("writes nothing when one op is invalid", func() {
			err := driver.Batch(ctx, []storage.Op{
				{Bucket: "memory", Key: "1", Value: []byte("one")},
				{Bucket: "memory", Key: "", Value: []byte("bad")},
			})
			Expect(err).To(HaveOccurred())
			Expect(driver.Count("memory")).To(Equal(0))
		})
	})
})
