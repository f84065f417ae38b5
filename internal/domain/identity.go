package domain

import "github.com/google/uuid"

// AccountIDForEmail детерминированно выводит идентификатор счета из email:
// UUID v5 в пространстве имен URL. Идентификатор воспроизводим без обращения
// к хранилищу, что позволяет находить дубликаты и назначать id еще не
// созданным счетам.
func AccountIDForEmail(emailAddress string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(emailAddress)).String()
}
