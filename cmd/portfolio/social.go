package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/portfolio/internal/apperror"
	"github.com/sakif/portfolio/internal/model"
	"github.com/sakif/portfolio/internal/social"
)

var likeCmd = &cobra.Command{
	Use:   "like <project|blog> <slug>",
	Short: "Like or unlike a project or blog post",
	Long: `Toggle your like on a project or blog post.

Examples:
  portfolio like project weather-dashboard
  portfolio like blog typescript-best-practices`,
	Args: cobra.ExactArgs(2),
	RunE: runLike,
}

var likesCmd = &cobra.Command{
	Use:   "likes <project|blog> <slug>",
	Short: "Show the like count",
	Args:  cobra.ExactArgs(2),
	RunE:  runLikes,
}

var commentsCmd = &cobra.Command{
	Use:   "comments <project|blog> <slug>",
	Short: "List comments, newest first",
	Args:  cobra.ExactArgs(2),
	RunE:  runComments,
}

var commentCmd = &cobra.Command{
	Use:   "comment <project|blog> <slug> <text>",
	Short: "Post a comment",
	Args:  cobra.ExactArgs(3),
	RunE:  runComment,
}

var editCommentCmd = &cobra.Command{
	Use:   "edit-comment <project|blog> <slug> <comment-id> <text>",
	Short: "Edit one of your comments",
	Args:  cobra.ExactArgs(4),
	RunE:  runEditComment,
}

var deleteCommentCmd = &cobra.Command{
	Use:   "delete-comment <project|blog> <slug> <comment-id>",
	Short: "Delete a comment",
	Long: `Delete one of your comments. Admins can delete any comment.

You are asked to confirm unless --force is given.`,
	Args: cobra.ExactArgs(3),
	RunE: runDeleteComment,
}

var viewCmd = &cobra.Command{
	Use:   "view <project|blog> <slug>",
	Short: "Record a visit and show the view count",
	Args:  cobra.ExactArgs(2),
	RunE:  runView,
}

func init() {
	commentsCmd.Flags().Duration("watch", 0, "keep listening for new comments for this long (e.g. 30s)")
	deleteCommentCmd.Flags().BoolP("force", "f", false, "skip confirmation prompt")

	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(likesCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(editCommentCmd)
	rootCmd.AddCommand(deleteCommentCmd)
	rootCmd.AddCommand(viewCmd)
}

// resolveEntity turns "<type> <slug>" into the entity comments and likes are
// keyed by.
func resolveEntity(ctx context.Context, kind, slug string) (model.EntityRef, error) {
	switch model.EntityType(kind) {
	case model.EntityProject:
		p, err := client.app.Projects.GetBySlug(ctx, slug)
		if err != nil {
			return model.EntityRef{}, err
		}
		return model.EntityRef{Type: model.EntityProject, ID: p.ID}, nil
	case model.EntityBlog:
		actor, err := client.session.CurrentUser(ctx)
		if err != nil {
			return model.EntityRef{}, err
		}
		p, err := client.app.Blogs.GetBySlug(ctx, actor, slug)
		if err != nil {
			return model.EntityRef{}, err
		}
		return model.EntityRef{Type: model.EntityBlog, ID: p.ID}, nil
	}
	return model.EntityRef{}, apperror.ValidationFailed("type", "type must be project or blog")
}

func runLike(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	entity, err := resolveEntity(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	w := social.NewLikeWidget(entity, client.app.Likes, client.session, client.logger)
	defer w.Close()
	if err := w.Load(ctx); err != nil {
		return err
	}
	if !jsonOut {
		w.OnChange(func(s social.LikeState) {
			if s.Phase == social.PhasePending {
				fmt.Printf("%s %d ...\n", heart(s.Liked), s.Count)
			}
		})
	}

	s, err := w.Toggle(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(model.ToggleResult{Liked: s.Liked, Count: s.Count})
	}
	fmt.Printf("%s %d\n", heart(s.Liked), s.Count)
	return nil
}

func runLikes(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	entity, err := resolveEntity(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	w := social.NewLikeWidget(entity, client.app.Likes, client.session, client.logger)
	defer w.Close()
	if err := w.Load(ctx); err != nil {
		return err
	}
	s := w.State()
	if jsonOut {
		return printJSON(model.LikeData{Count: s.Count, HasLiked: s.Liked})
	}
	fmt.Printf("%s %d\n", heart(s.Liked), s.Count)
	return nil
}

func heart(liked bool) string {
	if liked {
		return "♥"
	}
	return "♡"
}

// openThread loads the comment thread of args[0] args[1].
func openThread(ctx context.Context, args []string) (*social.CommentThread, error) {
	entity, err := resolveEntity(ctx, args[0], args[1])
	if err != nil {
		return nil, err
	}
	t := social.NewCommentThread(entity, client.app.Comments, client.session, client.logger)
	if err := t.Load(ctx); err != nil {
		t.Close()
		return nil, err
	}
	return t, nil
}

func runComments(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, err := openThread(ctx, args)
	if err != nil {
		return err
	}
	defer t.Close()

	if err := printComments(t.Comments()); err != nil {
		return err
	}

	watch, _ := cmd.Flags().GetDuration("watch")
	if watch <= 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, watch)
	defer cancel()
	t.OnChange(func(cs []model.CommentView) {
		if !jsonOut {
			fmt.Println("--- updated ---")
		}
		_ = printComments(cs)
	})
	if err := t.Follow(ctx, client.app.Live); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func printComments(cs []model.CommentView) error {
	if jsonOut {
		return printJSON(cs)
	}
	if len(cs) == 0 {
		fmt.Println("No comments yet")
		return nil
	}
	for _, c := range cs {
		author := "[deleted user]"
		if c.Author != nil {
			author = c.Author.DisplayName
			if author == "" {
				author = c.Author.Email
			}
		}
		edited := ""
		if c.Edited {
			edited = " (edited)"
		}
		fmt.Printf("%s  %s, %s%s\n", c.ID, author, c.CreatedAt.Local().Format(time.DateTime), edited)
		fmt.Printf("    %s\n", c.Content)
	}
	return nil
}

func runComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, err := openThread(ctx, args)
	if err != nil {
		return err
	}
	defer t.Close()

	c, err := t.Post(ctx, args[2])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c)
	}
	fmt.Printf("Comment %s posted\n", c.ID)
	return nil
}

func runEditComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, err := openThread(ctx, args)
	if err != nil {
		return err
	}
	defer t.Close()

	c, err := t.Edit(ctx, args[2], args[3])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(c)
	}
	fmt.Printf("Comment %s updated\n", c.ID)
	return nil
}

func runDeleteComment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	t, err := openThread(ctx, args)
	if err != nil {
		return err
	}
	defer t.Close()

	force, _ := cmd.Flags().GetBool("force")
	confirm := func(_ context.Context, c model.CommentView) bool {
		if force {
			return true
		}
		fmt.Printf("Delete comment %q? [y/N]: ", c.Content)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.TrimSpace(answer)
		return answer == "y" || answer == "Y"
	}

	deleted, err := t.Delete(ctx, args[2], confirm)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]bool{"deleted": deleted})
	}
	if !deleted {
		fmt.Println("Aborted")
		return nil
	}
	fmt.Println("Comment deleted")
	return nil
}

func runView(cmd *cobra.Command, args []string) error {
	vc, err := client.app.Views.Record(cmd.Context(), model.EntityType(args[0]), args[1])
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(vc)
	}
	fmt.Printf("%d views\n", vc.Count)
	return nil
}
