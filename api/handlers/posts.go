package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autoblog/dto"
	"autoblog/repositories"
	"autoblog/services"
	"autoblog/trace"
)

func apiError(c *gin.Context, status int, msg string) {
	c.JSON(status, dto.ErrorResponse{Error: msg, RequestID: trace.RequestIDFromContext(c.Request.Context())})
}

// ListPostsHandler godoc
// @Summary      List posts
// @Description  List every post, newest first
// @Tags         posts
// @Produce      json
// @Success      200  {array}  dto.PostDTO
// @Router       /posts [get]
func ListPostsHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := svc.List(c.Request.Context())
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to list posts")
			return
		}
		c.JSON(http.StatusOK, items)
	}
}

// CreatePostHandler godoc
// @Summary      Create post
// @Description  Summarize and tag content, then store it as a new post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreatePostRequest  true  "Post content"
// @Success      201  {object}  dto.PostDTO
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /posts [post]
func CreatePostHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.CreatePostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apiError(c, http.StatusBadRequest, "invalid request body")
			return
		}

		post, err := svc.Generate(c.Request.Context(), req.Content, services.OriginAPI)
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			apiError(c, http.StatusBadRequest, err.Error())
		case err != nil:
			failureNotice(c, MsgGenerateFailed, err)
			apiError(c, http.StatusBadGateway, MsgGenerateFailed)
		default:
			c.JSON(http.StatusCreated, post)
		}
	}
}

// GetPostHandler godoc
// @Summary      Get post by id
// @Tags         posts
// @Param        id   path   int  true  "Post id"
// @Produce      json
// @Success      200  {object}  dto.PostDTO
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /posts/{id} [get]
func GetPostHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			apiError(c, http.StatusNotFound, "not found")
			return
		}
		post, err := svc.GetByID(c.Request.Context(), id)
		if errors.Is(err, repositories.ErrPostNotFound) {
			apiError(c, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to load post")
			return
		}
		c.JSON(http.StatusOK, post)
	}
}

// DeletePostHandler godoc
// @Summary      Delete post
// @Tags         posts
// @Param        id   path   int  true  "Post id"
// @Produce      json
// @Success      200  {object}  dto.MessageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /posts/{id} [delete]
func DeletePostHandler(svc *services.PostService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			apiError(c, http.StatusNotFound, "not found")
			return
		}
		err := svc.Delete(c.Request.Context(), id)
		if errors.Is(err, repositories.ErrPostNotFound) {
			apiError(c, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			apiError(c, http.StatusInternalServerError, "failed to delete post")
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponse{Message: MsgDeleted})
	}
}
