package router

import (
	"errors"
	"net/http"

	"github.com/auctionx-lab/backend/pkg/errorx"
	"github.com/auctionx-lab/backend/pkg/xcontext"
	"github.com/gin-gonic/gin"
)

// RequestUserHeader carries the user id resolved by the authentication
// gateway in front of this service. The core never validates it.
const RequestUserHeader = "X-User-Id"

func wrapHandler[Request, Response any](
	router *Router,
	method string,
	handler HandlerFunc[Request, Response],
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req Request
		var err error
		switch method {
		case http.MethodGet:
			err = c.BindQuery(&req)
		case http.MethodPost:
			err = c.BindJSON(&req)
		default:
			err = errors.New("unsupported method")
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": errorx.BadRequest, "message": "Invalid request"})
			return
		}

		ctx := xcontext.WithDB(c.Request.Context(), router.db)
		ctx = xcontext.WithConfigs(ctx, router.cfg)
		ctx = xcontext.WithLogger(ctx, router.logger)
		if userID := c.GetHeader(RequestUserHeader); userID != "" {
			ctx = xcontext.WithRequestUserID(ctx, userID)
		}

		resp, err := handler(ctx, &req)
		if err != nil {
			var xerr errorx.Error
			if errors.As(err, &xerr) {
				c.JSON(httpStatus(xerr.Code), gin.H{"code": xerr.Code, "message": xerr.Message})
			} else {
				router.logger.Errorf("Unhandled error on %s: %v", c.FullPath(), err)
				c.JSON(http.StatusInternalServerError,
					gin.H{"code": errorx.Unknown.Code, "message": errorx.Unknown.Message})
			}
			return
		}

		if resp != nil {
			c.JSON(http.StatusOK, resp)
		}
	}
}

func wrapMiddleware(middleware MiddlewareFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := middleware(c); err != nil {
			c.JSON(http.StatusInternalServerError,
				gin.H{"code": errorx.Unknown.Code, "message": errorx.Unknown.Message})
			c.Abort()
		}
	}
}

func httpStatus(code errorx.Code) int {
	switch code {
	case errorx.NotFound:
		return http.StatusNotFound
	case errorx.BadRequest, errorx.InsufficientFunds:
		return http.StatusBadRequest
	case errorx.Conflict, errorx.AlreadyExists:
		return http.StatusConflict
	case errorx.Unauthenticated:
		return http.StatusUnauthorized
	case errorx.PermissionDenied:
		return http.StatusForbidden
	case errorx.TooManyRequests:
		return http.StatusTooManyRequests
	case errorx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
