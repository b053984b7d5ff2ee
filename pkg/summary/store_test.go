package summary_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/treeagent/pkg/storage/inmemory"
	"github.com/papercomputeco/treeagent/pkg/summary"
)

var _ = Describe("Store", func() {
	var (
		ctx    context.Context
		driver *inmemory.Driver
		store  *summary.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = inmemory.NewDriver()

		var err error
		store, err = summary.OpenStore(ctx, driver, nil)
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates a hidden ROOT concept", func() {
		root, ok := store.Get(summary.RootKey)
		Expect(ok).To(BeTrue())
		Expect(root.Show).To(BeFalse())
		Expect(driver.Count(summary.Bucket)).To(Equal(1))
		Expect(store.Titles()).To(BeEmpty())
	})

	It("creates new concepts hidden", func() {
		Expect(store.Upsert(ctx, "Goal", "ship it")).To(Succeed())
		c, ok := store.Get("Goal")
		Expect(ok).To(BeTrue())
		Expect(c.Show).To(BeFalse())
		Expect(c.Content).To(Equal("ship it"))
	})

	It("keeps visibility when updating content", func() {
		Expect(store.Upsert(ctx, "Goal", "v1")).To(Succeed())
		_, err := store.Reveal(ctx, "Goal")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Upsert(ctx, "Goal", "v2")).To(Succeed())

		c, _ := store.Get("Goal")
		Expect(c.Show).To(BeTrue())
		Expect(c.Content).To(Equal("v2"))
	})

	It("ignores unknown keys and ROOT when revealing", func() {
		Expect(store.Upsert(ctx, "Goal", "ship it")).To(Succeed())
		revealed, err := store.Reveal(ctx, "Missing", summary.RootKey, "Goal")
		Expect(err).NotTo(HaveOccurred())
		Expect(revealed).To(HaveLen(1))
		Expect(revealed[0].Key).To(Equal("Goal"))

		_, ok := store.Get("Missing")
		Expect(ok).To(BeFalse())
		root, _ := store.Get(summary.RootKey)
		Expect(root.Show).To(BeFalse())
	})

	It("creates unknown keys empty and hidden when hiding", func() {
		Expect(store.Hide(ctx, "Later")).To(Succeed())
		c, ok := store.Get("Later")
		Expect(ok).To(BeTrue())
		Expect(c.Content).To(BeEmpty())
		Expect(c.Show).To(BeFalse())
	})

	It("renders only visible non-empty concepts in store order", func() {
		Expect(store.Upsert(ctx, "B", "bravo")).To(Succeed())
		Expect(store.Upsert(ctx, "A", "alpha")).To(Succeed())
		Expect(store.Upsert(ctx, "Empty", "  ")).To(Succeed())
		Expect(store.Upsert(ctx, "Hidden", "secret")).To(Succeed())
		_, err := store.Reveal(ctx, "A", "B", "Empty")
		Expect(err).NotTo(HaveOccurred())

		Expect(store.ShowMemory()).To(Equal("<<B>>\nbravo\n\n<<A>>\nalpha"))
	})

	It("reloads concepts in their original order", func() {
		Expect(store.Upsert(ctx, "B", "bravo")).To(Succeed())
		Expect(store.Upsert(ctx, "A", "alpha")).To(Succeed())
		_, err := store.Reveal(ctx, "A")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.SetRootContent(ctx, "loose")).To(Succeed())

		reopened, err := summary.OpenStore(ctx, driver, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(reopened.Concepts()).To(Equal(store.Concepts()))
		Expect(reopened.Titles()).To(Equal([]string{"B", "A"}))
	})
})
