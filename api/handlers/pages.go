package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autoblog/flash"
	"autoblog/internal/logger"
	"autoblog/parser"
	"autoblog/repositories"
	"autoblog/services"
	"autoblog/trace"
)

const (
	MsgEmptyContent   = "Please provide some content to generate a summary and tags!"
	MsgGenerateFailed = "An error occurred while generating the summary and tags. Please try again."
	MsgDeleted        = "Blog post deleted successfully!"
	MsgEmptyURL       = "Please provide a URL to import."
	MsgImportFailed   = "Could not read an article from that URL. Please check it and try again."
	MsgEmptyFeedURL   = "Please provide a feed URL to import."
	MsgFeedFailed     = "Could not read that feed. Please check the URL and try again."
	MsgFeedImported   = "Imported %d post(s) from the feed."
	MsgFeedPartial    = "Some feed items could not be imported."
)

// render pops pending flash notices into every page.
func render(c *gin.Context, fl *flash.Store, status int, name string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = fl.Pop(c)
	c.HTML(status, name, data)
}

func renderNotFound(c *gin.Context, fl *flash.Store) {
	render(c, fl, http.StatusNotFound, "not_found.html", gin.H{"Title": "Not Found"})
}

func renderError(c *gin.Context, fl *flash.Store, err error) {
	requestID := trace.RequestIDFromContext(c.Request.Context())
	logger.ErrorWithFields("request failed", logger.Fields{
		"path":       c.Request.URL.Path,
		"error":      err.Error(),
		"request_id": requestID,
	})
	render(c, fl, http.StatusInternalServerError, "error.html", gin.H{"Title": "Error", "RequestID": requestID})
}

// failureNotice logs err and returns the sanitized notice shown to the user.
func failureNotice(c *gin.Context, msg string, err error) string {
	requestID := trace.RequestIDFromContext(c.Request.Context())
	logger.ErrorWithFields("post generation failed", logger.Fields{
		"path":       c.Request.URL.Path,
		"error":      err.Error(),
		"request_id": requestID,
	})
	if requestID == "" {
		return msg
	}
	return fmt.Sprintf("%s (request id: %s)", msg, requestID)
}

// parseID returns false for anything that is not a positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// IndexPage renders the submission form above every post, newest first.
func IndexPage(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := svc.List(c.Request.Context())
		if err != nil {
			renderError(c, fl, err)
			return
		}
		render(c, fl, http.StatusOK, "index.html", gin.H{"Title": "Home", "Posts": posts})
	}
}

// SubmitPost handles the form on "/": generate, store, then show the result.
func SubmitPost(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := svc.Generate(c.Request.Context(), c.PostForm("content"), services.OriginForm)
		switch {
		case errors.Is(err, services.ErrEmptyContent):
			fl.Add(c, flash.CategoryError, MsgEmptyContent)
			c.Redirect(http.StatusFound, "/")
		case err != nil:
			fl.Add(c, flash.CategoryError, failureNotice(c, MsgGenerateFailed, err))
			c.Redirect(http.StatusFound, "/")
		default:
			c.Redirect(http.StatusFound, fmt.Sprintf("/result/%d", post.ID))
		}
	}
}

// ImportPost runs the submit flow on the article text found at a URL.
func ImportPost(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		post, err := svc.Import(c.Request.Context(), c.PostForm("url"))
		switch {
		case errors.Is(err, services.ErrEmptyURL):
			fl.Add(c, flash.CategoryError, MsgEmptyURL)
			c.Redirect(http.StatusFound, "/")
		case errors.Is(err, services.ErrEmptyContent),
			errors.Is(err, parser.ErrInvalidURL),
			errors.Is(err, parser.ErrEmptyArticle):
			fl.Add(c, flash.CategoryError, MsgImportFailed)
			c.Redirect(http.StatusFound, "/")
		case err != nil:
			fl.Add(c, flash.CategoryError, failureNotice(c, MsgGenerateFailed, err))
			c.Redirect(http.StatusFound, "/")
		default:
			c.Redirect(http.StatusFound, fmt.Sprintf("/result/%d", post.ID))
		}
	}
}

// ImportFeedPosts creates a post for each of the newest items of a feed.
func ImportFeedPosts(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := svc.ImportFeed(c.Request.Context(), c.PostForm("feed_url"))
		switch {
		case errors.Is(err, services.ErrEmptyURL):
			fl.Add(c, flash.CategoryError, MsgEmptyFeedURL)
			c.Redirect(http.StatusFound, "/")
			return
		case err != nil && len(posts) == 0:
			fl.Add(c, flash.CategoryError, failureNotice(c, MsgFeedFailed, err))
			c.Redirect(http.StatusFound, "/")
			return
		case err != nil:
			fl.Add(c, flash.CategoryError, failureNotice(c, MsgFeedPartial, err))
		}
		fl.Add(c, flash.CategorySuccess, fmt.Sprintf(MsgFeedImported, len(posts)))
		c.Redirect(http.StatusFound, "/blogs")
	}
}

func ResultPage(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			renderNotFound(c, fl)
			return
		}
		post, err := svc.GetByID(c.Request.Context(), id)
		if errors.Is(err, repositories.ErrPostNotFound) {
			renderNotFound(c, fl)
			return
		}
		if err != nil {
			renderError(c, fl, err)
			return
		}
		render(c, fl, http.StatusOK, "result.html", gin.H{"Title": fmt.Sprintf("Post #%d", post.ID), "Post": post})
	}
}

func AllBlogsPage(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := svc.List(c.Request.Context())
		if err != nil {
			renderError(c, fl, err)
			return
		}
		render(c, fl, http.StatusOK, "all_blogs.html", gin.H{"Title": "All posts", "Posts": posts})
	}
}

// DeletePost removes a post and returns to the list.
func DeletePost(svc *services.PostService, fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			renderNotFound(c, fl)
			return
		}
		err := svc.Delete(c.Request.Context(), id)
		if errors.Is(err, repositories.ErrPostNotFound) {
			renderNotFound(c, fl)
			return
		}
		if err != nil {
			renderError(c, fl, err)
			return
		}
		fl.Add(c, flash.CategorySuccess, MsgDeleted)
		c.Redirect(http.StatusFound, "/blogs")
	}
}

// NotFound renders the 404 page for unmatched routes.
func NotFound(fl *flash.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		renderNotFound(c, fl)
	}
}
