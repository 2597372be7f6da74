package mutexregistry_test

import (
	"testing"

	"llir2pn/llir"
	"llir2pn/mutexregistry"
	"llir2pn/petrinet"
)

func TestAddCreatesFourPlaceSubnetWithInitialToken(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)

	m := reg.Add()
	if reg.Count() != 1 {
		t.Fatalf("expected 1 mutex, got %d", reg.Count())
	}
	if net.Marking(reg.Uninitialised(m)) != 1 {
		t.Fatalf("expected the uninitialised place to carry the initial token")
	}
	if net.Marking(reg.Unlocked(m)) != 0 || net.Marking(reg.Locked(m)) != 0 || net.Marking(reg.Dead(m)) != 0 {
		t.Fatalf("expected unlocked/locked/dead to start empty")
	}
}

func TestLinkAndLinkedRoundTrip(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	m := reg.Add()

	if _, ok := reg.Linked(0, llir.Local(3)); ok {
		t.Fatalf("expected no link before Link is called")
	}
	reg.Link(0, llir.Local(3), m)
	got, ok := reg.Linked(0, llir.Local(3))
	if !ok || got != m {
		t.Fatalf("expected local 3 in frame 0 to resolve back to m")
	}
}

func TestLinkIsFrameDisambiguated(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	a := reg.Add()
	b := reg.Add()

	reg.Link(0, llir.Local(1), a)
	reg.Link(1, llir.Local(1), b)

	got0, _ := reg.Linked(0, llir.Local(1))
	got1, _ := reg.Linked(1, llir.Local(1))
	if got0 != a || got1 != b {
		t.Fatalf("expected the same local index in different frames to resolve independently")
	}
}

func TestLinkIfAliasedPropagatesAcrossCallBoundary(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	m := reg.Add()

	callerPlace := net.NamedPlace("caller_local.live")
	reg.Link(0, llir.Local(2), m)
	reg.LinkByPlace(callerPlace, m)

	if !reg.LinkIfAliased(1, llir.Local(0), callerPlace) {
		t.Fatalf("expected the callee's aliasing local to pick up the caller's mutex identity")
	}
	got, ok := reg.Linked(1, llir.Local(0))
	if !ok || got != m {
		t.Fatalf("expected callee frame 1 local 0 to resolve to m")
	}
}

func TestLinkIfAliasedReportsFalseForUnknownPlace(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	unrelated := net.NamedPlace("unrelated")

	if reg.LinkIfAliased(0, llir.Local(5), unrelated) {
		t.Fatalf("expected no alias to be found for a place never linked")
	}
}

func TestGuardLinkAndClear(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	m := reg.Add()

	reg.LinkGuard(0, llir.Local(7), m)
	got, ok := reg.Guard(0, llir.Local(7))
	if !ok || got != m {
		t.Fatalf("expected guard local 7 to resolve to m")
	}

	reg.ClearGuard(0, llir.Local(7))
	if _, ok := reg.Guard(0, llir.Local(7)); ok {
		t.Fatalf("expected the guard link to be gone after ClearGuard")
	}
}

func TestGroupsReturnsFourPlaceQuadrupletsInCreationOrder(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	a := reg.Add()
	b := reg.Add()

	groups := reg.Groups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0][0] != reg.Uninitialised(a) || groups[1][2] != reg.Locked(b) {
		t.Fatalf("expected groups to line up with each mutex's own places")
	}
}

func TestAllReturnsEveryMutexInCreationOrder(t *testing.T) {
	net := petrinet.New()
	reg := mutexregistry.New(net, nil)
	a := reg.Add()
	b := reg.Add()

	all := reg.All()
	if len(all) != 2 || all[0] != a || all[1] != b {
		t.Fatalf("expected All to return [a, b] in creation order")
	}
}
