package pagination

import "testing"

func TestSliceWindows(t *testing.T) {
	rows := make([]int, 0, 7)
	for i := 1; i <= 7; i++ {
		rows = append(rows, i)
	}

	page, info := Slice(rows, Pagination{Page: 2, PageSize: 3})
	if len(page) != 3 || page[0] != 4 {
		t.Fatalf("unexpected page: %v", page)
	}
	if info.TotalCount != 7 || !info.HasMore {
		t.Fatalf("unexpected info: %+v", info)
	}

	page, info = Slice(rows, Pagination{Page: 3, PageSize: 3})
	if len(page) != 1 || info.HasMore {
		t.Fatalf("expected final partial page, got %v %+v", page, info)
	}

	page, info = Slice(rows, Pagination{Page: 9, PageSize: 3})
	if page != nil || info.HasMore {
		t.Fatalf("expected empty page past the end, got %v", page)
	}
}

func TestSliceNormalizesBounds(t *testing.T) {
	rows := []string{"a", "b"}

	page, info := Slice(rows, Pagination{Page: -1, PageSize: 0})
	if len(page) != 2 || info.Page != 1 || info.PageSize != DefaultPageSize {
		t.Fatalf("unexpected normalization: %v %+v", page, info)
	}

	_, info = Slice(rows, Pagination{PageSize: MaxPageSize * 2})
	if info.PageSize != MaxPageSize {
		t.Fatalf("expected page size capped at %d, got %d", MaxPageSize, info.PageSize)
	}
}

func TestSliceUnboundedReturnsEverything(t *testing.T) {
	rows := make([]int, MaxPageSize+5)

	page, info := Slice(rows, Pagination{Unbounded: true})
	if len(page) != len(rows) {
		t.Fatalf("expected all %d rows, got %d", len(rows), len(page))
	}
	if info.PageSize != len(rows) || info.HasMore {
		t.Fatalf("unexpected info: %+v", info)
	}
}
