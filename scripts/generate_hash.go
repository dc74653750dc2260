//go:build ignore

// generate_hash.go — утилита для генерации Argon2id хеша токена администратора.
// Запуск: go run scripts/generate_hash.go [токен]
// Без аргумента генерирует случайный токен.
//
// Хеш вставьте в .env как ADMIN_TOKEN_HASH, токен передавайте в заголовке
// Authorization: Bearer <токен>.
package main

import (
	"crypto/rand"
	"fmt"
	"os"

	"funplay.vn/light-engine/internal/features/admin"
)

func main() {
	token := ""
	if len(os.Args) >= 2 {
		token = os.Args[1]
	} else {
		generated, err := admin.GenerateToken()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		token = generated
		fmt.Println("Токен администратора (сохраните, он больше не будет показан):")
		fmt.Println(token)
	}

	// Генерируем случайную соль (16 байт)
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		fmt.Printf("Ошибка генерации соли: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Хеш токена (вставьте в .env как ADMIN_TOKEN_HASH):")
	fmt.Println(admin.HashToken(token, salt, admin.DefaultHashParams))
}
