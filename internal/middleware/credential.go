package middleware

import (
	"net/http"
	"strconv"

	"stock-movement-service/internal/config"
	"stock-movement-service/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	credentialKey = "credential"

	HeaderAccountID = "X-Account-ID"
	HeaderUserID    = "X-User-ID"
)

// Permission acción sobre un securable
type Permission struct {
	Securable string
	Action    string
}

// Permisos usados por las rutas de movimientos
const (
	SecurableStockMovement = "STOCK_MOVEMENT"

	ActionCreate = "CREATE"
	ActionRead   = "READ"
	ActionUpdate = "UPDATE"
)

// CredentialMiddleware resuelve {idAccount, idUser} una vez por request.
// Sin autenticación se usan los valores por defecto; los headers de identidad
// solo se aceptan con TrustIdentityHeaders.
func CredentialMiddleware(identity config.IdentityConfig, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred := models.Credential{
			IDAccount: identity.DefaultAccountID,
			IDUser:    identity.DefaultUserID,
		}

		if identity.TrustIdentityHeaders {
			var ok bool
			if cred.IDAccount, ok = headerID(c, HeaderAccountID, cred.IDAccount); !ok {
				return
			}
			if cred.IDUser, ok = headerID(c, HeaderUserID, cred.IDUser); !ok {
				return
			}
		}

		logger.Debug("Credential resolved",
			zap.Int64("id_account", cred.IDAccount),
			zap.Int64("id_user", cred.IDUser),
		)
		c.Set(credentialKey, cred)
		c.Next()
	}
}

// headerID lee un id positivo del header; ausente usa fallback
func headerID(c *gin.Context, header string, fallback int64) (int64, bool) {
	raw := c.GetHeader(header)
	if raw == "" {
		return fallback, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, models.NewErrorResponse("Invalid "+header+" header", nil))
		return 0, false
	}
	return id, true
}

// GetCredential devuelve la credencial resuelta; false si el middleware no corrió
func GetCredential(c *gin.Context) (models.Credential, bool) {
	value, exists := c.Get(credentialKey)
	if !exists {
		return models.Credential{}, false
	}
	cred, ok := value.(models.Credential)
	return cred, ok
}

// RequirePermission verificación de permisos. Sin modelo de autorización todavía,
// solo registra la comprobación y deja pasar.
func RequirePermission(permission Permission, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		cred, _ := GetCredential(c)
		logger.Debug("Permission check",
			zap.String("securable", permission.Securable),
			zap.String("action", permission.Action),
			zap.Int64("id_account", cred.IDAccount),
			zap.Int64("id_user", cred.IDUser),
		)
		c.Next()
	}
}
