package pubforms

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/eringen/pubforms/drafts"
	"github.com/eringen/pubforms/forms"
	"github.com/eringen/pubforms/views"
)

const (
	msgBlogCreated = "Blog created successfully!"
	msgBlogFailed  = "Failed to create blog. Please try again."
)

func (a *App) handleBlogCreate(c echo.Context) error {
	draft, err := a.Drafts.Create(drafts.PageBlog)
	if err != nil {
		return fmt.Errorf("create blog draft: %w", err)
	}
	return a.renderBlogForm(c, views.BlogForm{
		DraftID: draft.ID,
		Image:   views.FileSelection{Field: forms.FieldImage},
	})
}

func (a *App) handleBlogImage(c echo.Context) error {
	auth, _ := CurrentAuth(c)
	sel, err := a.handleFileSelection(c, drafts.PageBlog, forms.NewBlog(auth.UserID), a.blogFiles, forms.FieldImage)
	if err != nil {
		return err
	}
	return Render(c, a.Views.ImageSelection(sel))
}

func (a *App) handleBlogContent(c echo.Context) error {
	return Render(c, a.Views.ContentPreview(c.FormValue(forms.FieldContent)))
}

func (a *App) handleBlogSubmit(c echo.Context) error {
	auth, _ := CurrentAuth(c)

	blog := forms.NewBlog(auth.UserID)
	for _, field := range []string{forms.FieldTitle, forms.FieldContent, forms.FieldCategory} {
		blog.Set(field, c.FormValue(field))
	}

	draft, err := a.openDraft(drafts.PageBlog, c.FormValue("draft_id"))
	if err != nil {
		return fmt.Errorf("open blog draft: %w", err)
	}
	image, err := a.attachFile(c, drafts.PageBlog, draft, blog, a.blogFiles, forms.FieldImage)
	if err != nil {
		return err
	}

	form := views.BlogForm{
		DraftID:  draft.ID,
		Title:    blog.Title,
		Content:  blog.Content,
		Category: blog.Category,
		Image:    image,
	}

	if ok, errs := forms.ValidateBlog(blog); !ok {
		a.Metrics.CounterValidationFailure.WithLabelValues(drafts.PageBlog).Inc()
		form.Message = forms.BlogMessage(errs)
		return a.renderBlogForm(c, form)
	}

	content, err := views.MarkdownHTML(blog.Content)
	if err != nil {
		return fmt.Errorf("convert blog content: %w", err)
	}
	payload := *blog
	payload.Content = content

	err = a.Backend.CreateBlog(c.Request().Context(), auth.AccessToken, &payload)
	a.countSubmission(drafts.PageBlog, err)
	if err != nil {
		form.Message = submitMessage(drafts.PageBlog, err, msgBlogFailed)
		return a.renderBlogForm(c, form)
	}

	log.Infof("blog %q created by user %s", blog.Title, auth.UserID)
	a.deleteDraft(draft.ID)
	if err := addFlash(c, msgBlogCreated); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/profile/")
}

// renderBlogForm renders the blog page with a freshly fetched category list.
func (a *App) renderBlogForm(c echo.Context, form views.BlogForm) error {
	form.Page = a.page(c, "Create blog")
	cats, err := a.Backend.Categories(c.Request().Context())
	if err != nil {
		log.Errorf("fetch categories: %s", err)
		form.CategoriesError = msgCategoriesUnavailable
	} else {
		form.Categories = cats
	}
	return Render(c, a.Views.BlogCreate(form))
}
