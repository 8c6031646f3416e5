// errors.go — ошибки бизнес-логики сервисного слоя.
package service

import "errors"

var (
	// ErrNotFound — ресурс не найден.
	ErrNotFound = errors.New("ресурс не найден")
	// ErrConflict — конфликт (дублирующийся ресурс).
	ErrConflict = errors.New("конфликт — ресурс уже существует")
	// ErrValidation — ошибка валидации входных данных.
	ErrValidation = errors.New("ошибка валидации")
	// ErrInvalidCredentials — неверный handle или секретная фраза.
	// Сообщение никогда не уточняет, что именно неверно.
	ErrInvalidCredentials = errors.New("неверный handle или секретная фраза")
	// ErrThrottled — превышен лимит попыток, отклоняются даже верные данные.
	ErrThrottled = errors.New("превышен лимит попыток, повторите позже")
	// ErrFileTooLarge — файл превышает допустимый размер.
	ErrFileTooLarge = errors.New("файл превышает допустимый размер")
	// ErrUnsupportedMedia — содержимое файла не является поддерживаемым изображением.
	ErrUnsupportedMedia = errors.New("поддерживаются только изображения JPEG и PNG")
)
