package petrinet_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"llir2pn/petrinet"
)

var _ = Describe("PetriNet", func() {
	var net *petrinet.PetriNet

	BeforeEach(func() {
		net = petrinet.New()
	})

	It("rejects an arc to a transition reference outside the net", func() {
		p1 := net.AddPlace()
		p2 := net.AddPlace()
		_ = p1
		_ = p2
		// AddArcPT/AddArcTP are direction-typed by signature, so a
		// place-to-place arc cannot even be expressed; this test instead
		// asserts that an out-of-net reference is rejected consistently,
		// which is the runtime half of the bipartition guarantee.
		var stray petrinet.TransitionRef
		err := net.AddArcPT(p1, stray)
		Expect(err).ToNot(BeNil())
	})

	It("rejects unknown node references", func() {
		other := petrinet.New()
		foreignPlace := other.AddPlace()
		t := net.AddTransition()
		Expect(net.AddArcPT(foreignPlace, t)).To(MatchError(petrinet.ErrUnknownPlace))
	})

	It("accepts duplicate arcs", func() {
		p := net.AddPlace()
		t := net.AddTransition()
		Expect(net.AddArcPT(p, t)).To(Succeed())
		Expect(net.AddArcPT(p, t)).To(Succeed())
		Expect(net.TransitionsFrom(p)).To(HaveLen(2))
	})

	It("keeps markings non-negative by construction", func() {
		p := net.AddPlace()
		Expect(net.Marking(p)).To(BeNumerically("==", 0))
		Expect(net.SetMarking(p, 3)).To(Succeed())
		Expect(net.Marking(p)).To(BeNumerically("==", 3))
	})

	It("ReadPair preserves tokens by adding both directions", func() {
		p := net.AddPlace()
		t := net.AddTransition()
		Expect(net.ReadPair(p, t)).To(Succeed())
		Expect(net.TransitionsFrom(p)).To(ContainElement(t))
		Expect(net.PlacesFrom(t)).To(ContainElement(p))
	})

	It("exports deterministic PNML across repeated calls", func() {
		p := net.NamedPlace("start")
		t := net.NamedTransition("go")
		q := net.NamedPlace("end")
		Expect(net.AddArcPT(p, t)).To(Succeed())
		Expect(net.AddArcTP(t, q)).To(Succeed())
		Expect(net.SetMarking(p, 1)).To(Succeed())

		var b1, b2 strings.Builder
		Expect(net.ExportPNML(&b1)).To(Succeed())
		Expect(net.ExportPNML(&b2)).To(Succeed())
		Expect(b1.String()).To(Equal(b2.String()))
		Expect(b1.String()).To(ContainSubstring("<initialMarking>"))
	})

	It("exports LoLA with CONSUME/PRODUCE per transition", func() {
		p := net.NamedPlace("start")
		t := net.NamedTransition("go")
		q := net.NamedPlace("end")
		Expect(net.AddArcPT(p, t)).To(Succeed())
		Expect(net.AddArcTP(t, q)).To(Succeed())
		Expect(net.SetMarking(p, 1)).To(Succeed())

		var b strings.Builder
		Expect(net.ExportLoLA(&b)).To(Succeed())
		out := b.String()
		Expect(out).To(ContainSubstring("PLACE"))
		Expect(out).To(ContainSubstring("MARKING"))
		Expect(out).To(ContainSubstring("TRANSITION go"))
		Expect(out).To(ContainSubstring("CONSUME start"))
		Expect(out).To(ContainSubstring("PRODUCE end"))
	})

	It("exports DOT with places as circles and transitions as boxes", func() {
		p := net.NamedPlace("start")
		t := net.NamedTransition("go")
		Expect(net.AddArcPT(p, t)).To(Succeed())

		var b strings.Builder
		Expect(net.ExportDOT(&b)).To(Succeed())
		out := b.String()
		Expect(out).To(ContainSubstring("shape=circle"))
		Expect(out).To(ContainSubstring("shape=box"))
		Expect(out).To(ContainSubstring("->"))
	})
})
