package model

import (
	"encoding/json"
	"testing"
)

// TestSubdomainMatches проверяет сопоставление меток запроса.
func TestSubdomainMatches(t *testing.T) {
	sub, err := AssignedSubdomain("anna")
	if err != nil {
		t.Fatalf("AssignedSubdomain: %v", err)
	}

	if !sub.Matches("anna") {
		t.Error("назначенный поддомен должен соответствовать своей метке")
	}
	if sub.Matches("boris") {
		t.Error("назначенный поддомен не должен соответствовать чужой метке")
	}
	if sub.Matches("") {
		t.Error("назначенный поддомен не должен соответствовать пустой метке")
	}
}

// TestSubdomainUnassignedNeverMatches проверяет, что неназначенный
// поддомен не соответствует никакой метке, включая пустую.
// Два неназначенных значения не равны друг другу.
func TestSubdomainUnassignedNeverMatches(t *testing.T) {
	sub := UnassignedSubdomain()

	if sub.Matches("") {
		t.Error("неназначенный поддомен не должен соответствовать пустой метке")
	}
	if sub.Matches("anna") {
		t.Error("неназначенный поддомен не должен соответствовать метке")
	}
	if sub.Assigned() {
		t.Error("Assigned() должен возвращать false")
	}
	if _, ok := sub.Value(); ok {
		t.Error("Value() должен возвращать ok = false")
	}
}

// TestAssignedSubdomainValidation проверяет валидацию значения.
func TestAssignedSubdomainValidation(t *testing.T) {
	invalid := []string{"", "Anna", "admin", "www", "under_score"}
	for _, v := range invalid {
		if _, err := AssignedSubdomain(v); err == nil {
			t.Errorf("AssignedSubdomain(%q): ожидалась ошибка", v)
		}
	}
}

// TestSubdomainJSON проверяет сериализацию: null для неназначенного.
func TestSubdomainJSON(t *testing.T) {
	sub, _ := AssignedSubdomain("anna")
	data, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"anna"` {
		t.Errorf(`ожидалось "anna", получено %s`, data)
	}

	data, _ = json.Marshal(UnassignedSubdomain())
	if string(data) != "null" {
		t.Errorf("ожидалось null, получено %s", data)
	}

	var parsed Subdomain
	if err := json.Unmarshal([]byte("null"), &parsed); err != nil {
		t.Fatalf("Unmarshal(null): %v", err)
	}
	if parsed.Assigned() {
		t.Error("null должен давать неназначенный поддомен")
	}

	if err := json.Unmarshal([]byte(`"anna"`), &parsed); err != nil {
		t.Fatalf(`Unmarshal("anna"): %v`, err)
	}
	if v, ok := parsed.Value(); !ok || v != "anna" {
		t.Errorf("ожидалось anna, получено %q, %v", v, ok)
	}
}
