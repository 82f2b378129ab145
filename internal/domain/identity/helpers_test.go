package identity

import "github.com/thirdhand/marketplace/internal/domain/shared"

func errCode(err error) string {
	if de, ok := shared.AsDomainError(err); ok {
		return de.Code
	}
	return ""
}
