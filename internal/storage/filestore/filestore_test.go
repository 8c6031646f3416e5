package filestore

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_CreatesDirectory проверяет создание директории данных.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	fs, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	if fs.DataDir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, fs.DataDir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSaveOriginal проверяет сохранение оригинала с подсчётом SHA-256
// и именованием по содержимому.
func TestSaveOriginal(t *testing.T) {
	fs, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания FileStore: %v", err)
	}

	content := []byte("Тестовые байты изображения для проверки.")

	result, err := fs.SaveOriginal("anna", bytes.NewReader(content), "sunset.JPG")
	if err != nil {
		t.Fatalf("ошибка сохранения: %v", err)
	}

	// Размер
	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	// Checksum
	expectedHash := sha256.Sum256(content)
	expectedChecksum := hex.EncodeToString(expectedHash[:])
	if result.Checksum != expectedChecksum {
		t.Errorf("checksum: ожидалось %s, получено %s", expectedChecksum, result.Checksum)
	}

	// Имя: {timestamp}_{sha256[:16]}.jpg
	if !strings.HasSuffix(result.StorageName, "_"+expectedChecksum[:16]+".jpg") {
		t.Errorf("имя файла должно содержать первые 16 символов хэша: %s", result.StorageName)
	}

	// Файл читается обратно
	f, err := fs.Open("anna", result.StorageName)
	if err != nil {
		t.Fatalf("ошибка открытия: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if !bytes.Equal(got, content) {
		t.Error("прочитанное содержимое не совпадает с записанным")
	}

	// Temp файлов не осталось
	entries, _ := os.ReadDir(filepath.Join(fs.DataDir(), "anna"))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("остался временный файл: %s", e.Name())
		}
	}
}

// TestSaveOriginal_SameBytesNoOverwrite проверяет, что повторная
// загрузка тех же байт не перезаписывает прежний файл молча:
// имена совпадают по хэшу, но содержимое идентично.
func TestSaveOriginal_IdenticalContent(t *testing.T) {
	fs, _ := New(t.TempDir())
	content := []byte("одни и те же байты")

	r1, err := fs.SaveOriginal("anna", bytes.NewReader(content), "a.jpg")
	if err != nil {
		t.Fatalf("первое сохранение: %v", err)
	}
	r2, err := fs.SaveOriginal("anna", bytes.NewReader(content), "b.jpg")
	if err != nil {
		t.Fatalf("второе сохранение: %v", err)
	}

	if r1.Checksum != r2.Checksum {
		t.Error("хэши идентичного содержимого должны совпадать")
	}
	if !fs.Exists("anna", r2.StorageName) {
		t.Error("файл второго сохранения должен существовать")
	}
}

// TestSaveVariant проверяет запись производного изображения.
func TestSaveVariant(t *testing.T) {
	fs, _ := New(t.TempDir())

	original, err := fs.SaveOriginal("anna", bytes.NewReader([]byte("оригинал")), "photo.png")
	if err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}

	data := []byte("данные варианта")
	name, size, err := fs.SaveVariant("anna", original.StorageName, "thumbnail", data)
	if err != nil {
		t.Fatalf("SaveVariant: %v", err)
	}
	if size != int64(len(data)) {
		t.Errorf("размер варианта: ожидалось %d, получено %d", len(data), size)
	}
	if !strings.HasSuffix(name, "_thumbnail.jpg") {
		t.Errorf("имя варианта должно оканчиваться на _thumbnail.jpg: %s", name)
	}
	if !fs.Exists("anna", name) {
		t.Error("вариант должен существовать на диске")
	}
}

// TestDelete проверяет удаление, включая идемпотентность.
func TestDelete(t *testing.T) {
	fs, _ := New(t.TempDir())

	result, _ := fs.SaveOriginal("anna", bytes.NewReader([]byte("байты")), "x.jpg")

	if err := fs.Delete("anna", result.StorageName); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if fs.Exists("anna", result.StorageName) {
		t.Error("файл должен быть удалён")
	}

	// Повторное удаление — не ошибка
	if err := fs.Delete("anna", result.StorageName); err != nil {
		t.Errorf("повторное удаление должно быть no-op: %v", err)
	}
}

// TestTenantIsolation проверяет раздельное хранение тенантов.
func TestTenantIsolation(t *testing.T) {
	fs, _ := New(t.TempDir())

	r, _ := fs.SaveOriginal("anna", bytes.NewReader([]byte("файл анны")), "a.jpg")

	if fs.Exists("boris", r.StorageName) {
		t.Error("файл одного тенанта не должен быть виден у другого")
	}
	if _, err := fs.Open("boris", r.StorageName); err == nil {
		t.Error("открытие чужого файла должно вернуть ошибку")
	}
}

// TestGenerateStorageName проверяет нормализацию расширения.
func TestGenerateStorageName(t *testing.T) {
	checksum := strings.Repeat("ab", 32)

	tests := []struct {
		filename string
		wantExt  string
	}{
		{"photo.jpg", ".jpg"},
		{"photo.JPEG", ".jpeg"},
		{"photo.png", ".png"},
		{"photo.webp", ".jpg"}, // неожиданное расширение нормализуется
		{"photo", ".jpg"},
	}

	for _, tt := range tests {
		name := generateStorageName(checksum, tt.filename)
		if !strings.HasSuffix(name, tt.wantExt) {
			t.Errorf("generateStorageName(%q): ожидалось расширение %s, получено %s",
				tt.filename, tt.wantExt, name)
		}
		if !strings.Contains(name, checksum[:16]) {
			t.Errorf("имя должно содержать префикс хэша: %s", name)
		}
	}
}
