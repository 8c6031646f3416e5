package model

import (
	"encoding/json"
	"fmt"
)

// Subdomain — routing-поддомен тенанта. Тип явно различает
// назначенный и неназначенный поддомен: сравнение двух "пустых"
// значений никогда не считается совпадением. Тенант без поддомена
// (например, администратор) не соответствует ни одному запросу.
type Subdomain struct {
	value    string
	assigned bool
}

// AssignedSubdomain создаёт назначенный поддомен.
// Значение валидируется по тем же правилам, что и handle.
func AssignedSubdomain(value string) (Subdomain, error) {
	if err := ValidateHandle(value); err != nil {
		return Subdomain{}, fmt.Errorf("недопустимый поддомен: %w", err)
	}
	return Subdomain{value: value, assigned: true}, nil
}

// UnassignedSubdomain создаёт неназначенный поддомен.
func UnassignedSubdomain() Subdomain {
	return Subdomain{}
}

// Assigned сообщает, назначен ли поддомен.
func (s Subdomain) Assigned() bool {
	return s.assigned
}

// Value возвращает значение поддомена и признак назначенности.
func (s Subdomain) Value() (string, bool) {
	return s.value, s.assigned
}

// Matches проверяет соответствие метки запроса поддомену.
// Неназначенный поддомен не соответствует никакой метке,
// в том числе пустой.
func (s Subdomain) Matches(label string) bool {
	if !s.assigned {
		return false
	}
	return s.value == label
}

// MarshalJSON сериализует поддомен: null для неназначенного.
func (s Subdomain) MarshalJSON() ([]byte, error) {
	if !s.assigned {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

// UnmarshalJSON десериализует поддомен: null — неназначенный.
func (s *Subdomain) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Subdomain{}
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	sub, err := AssignedSubdomain(v)
	if err != nil {
		return err
	}
	*s = sub
	return nil
}
