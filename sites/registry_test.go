package sites

import "testing"

func TestBuiltinSitesRegistered(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("no built-in sites registered")
	}

	for id, s := range all {
		if s.ID != id {
			t.Errorf("site keyed %q has ID %q", id, s.ID)
		}
		if s.City == "" || s.State == "" {
			t.Errorf("site %q missing jurisdiction", id)
		}
		if s.Platform != PlatformSPA && s.Platform != PlatformLegacy {
			t.Errorf("site %q has unknown platform %q", id, s.Platform)
		}
		if s.BaseURL == "" || s.SearchPath == "" {
			t.Errorf("site %q missing search URL parts", id)
		}
	}
}

func TestGet(t *testing.T) {
	s, ok := Get("sunnyvale-ca")
	if !ok {
		t.Fatal("sunnyvale-ca not registered")
	}
	if s.SearchURL() != "https://permits.sunnyvale.ca.gov/CitizenAccess/#/search" {
		t.Errorf("SearchURL = %q", s.SearchURL())
	}

	if _, ok := Get("nowhere-xx"); ok {
		t.Error("unexpected hit for unregistered site")
	}
}

func TestIDsSorted(t *testing.T) {
	ids := IDs()
	for i := 1; i < len(ids); i++ {
		if ids[i-1] >= ids[i] {
			t.Fatalf("IDs not sorted: %v", ids)
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	a := All()
	delete(a, "sunnyvale-ca")
	if _, ok := Get("sunnyvale-ca"); !ok {
		t.Fatal("mutating All() result affected the registry")
	}
}
