package cli

import (
	"errors"
	"fmt"
	"strings"

	"arbor-cli/internal/format"
	"arbor-cli/internal/model"
	"arbor-cli/internal/nodes"
	"arbor-cli/internal/query"
	"arbor-cli/internal/store"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func newNodesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "nodes",
		Aliases: []string{"node"},
		Short:   "Node commands",
	}
	cmd.AddCommand(newNodesListCmd(app))
	cmd.AddCommand(newNodesShowCmd(app))
	cmd.AddCommand(newNodesCreateCmd(app))
	cmd.AddCommand(newNodesRenameCmd(app))
	cmd.AddCommand(newNodesMoveCmd(app))
	cmd.AddCommand(newNodesArchiveCmd(app, true))
	cmd.AddCommand(newNodesArchiveCmd(app, false))
	cmd.AddCommand(newNodesRootCmd(app))
	cmd.AddCommand(newNodesVisibleCmd(app))
	return cmd
}

// nodeEnv is what every node command needs: the open mirror, the session, and the
// write service.
type nodeEnv struct {
	db   *store.DB
	sess *model.Session
	svc  *nodes.Service
}

func loadNodeEnv(cmd *cobra.Command, app *App) (*nodeEnv, error) {
	sess, err := app.session()
	if err != nil {
		return nil, err
	}
	db, err := app.openDB(cmd.Context())
	if err != nil {
		return nil, err
	}
	return &nodeEnv{db: db, sess: sess, svc: nodes.New(db, nodes.WithLogger(app.log))}, nil
}

type nodeList []model.Node

func (l nodeList) Text(st format.Styles) string {
	t := format.Table{Header: []string{"ID", "PARENT", "CREATED", "KIDS", "CONTENT"}}
	for _, n := range l {
		content := strings.ReplaceAll(n.Content, "\n", " ")
		if n.Archived() {
			content = st.Muted.Render("[archived] ") + content
		}
		kids := ""
		if n.HasChildren {
			kids = "+"
		}
		t.Rows = append(t.Rows, []string{n.ID, orDash(n.ParentID), n.CreatedAt.Format(model.TimeLayout), kids, content})
	}
	return t.Text(st)
}

type nodeDetail struct {
	model.Node `yaml:",inline"`
}

func (d nodeDetail) Text(st format.Styles) string {
	kv := format.KV{
		{"id", d.ID},
		{"parent", orDash(d.ParentID)},
		{"user", d.UserID},
		{"created", d.CreatedAt.Format(model.TimeLayout)},
	}
	if d.ArchivedAt != nil {
		kv = append(kv, [2]string{"archived", d.ArchivedAt.Format(model.TimeLayout)})
	}
	kv = append(kv, [2]string{"children", fmt.Sprint(d.HasChildren)}, [2]string{"content", d.Content})
	return kv.Text(st)
}

func newNodesListCmd(app *App) *cobra.Command {
	var parent string
	var archived bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the session user's nodes (newest first)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			q := query.AllNodes(env.sess.UserID, archived)
			if strings.TrimSpace(parent) != "" {
				q = query.Children(parent, archived)
			}
			out, err := query.Run(cmd.Context(), env.db, q, query.ScanNodes)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, nodeList(out))
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Only direct children of this node")
	cmd.Flags().BoolVar(&archived, "archived", false, "Include archived nodes")
	return cmd
}

func newNodesShowCmd(app *App) *cobra.Command {
	var render bool

	cmd := &cobra.Command{
		Use:   "show <node-id>",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := env.svc.Get(cmd.Context(), args[0])
			if err != nil {
				return writeErr(cmd, err)
			}
			if render {
				out, err := renderMarkdown(n.Content)
				if err != nil {
					return writeErr(cmd, err)
				}
				_, err = fmt.Fprint(cmd.OutOrStdout(), out)
				return err
			}
			return writeOut(cmd, app, nodeDetail{n})
		},
	}
	cmd.Flags().BoolVar(&render, "render", false, "Render the content as Markdown instead of printing the node")
	return cmd
}

func renderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(80))
	if err != nil {
		return "", err
	}
	return r.Render(content)
}

func newNodesCreateCmd(app *App) *cobra.Command {
	var parent, content string
	var topLevel bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a node (under the root node unless --parent or --top-level)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if topLevel && strings.TrimSpace(parent) != "" {
				return writeErr(cmd, errors.New("provide at most one of --parent or --top-level"))
			}
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			p := CreateParent(parent)
			if p == nil && !topLevel {
				root, err := env.svc.EnsureRoot(cmd.Context(), env.sess.UserID)
				if err != nil {
					return writeErr(cmd, err)
				}
				p = &root.ID
			}
			n, err := env.svc.Create(cmd.Context(), nodes.CreateParams{UserID: env.sess.UserID, ParentID: p, Content: content})
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, nodeDetail{n})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "Parent node id")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "Create without a parent")
	cmd.Flags().StringVar(&content, "content", "", "Node content")
	return cmd
}

// CreateParent normalises a --parent flag value; empty means "not given".
func CreateParent(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func newNodesRenameCmd(app *App) *cobra.Command {
	var content string

	cmd := &cobra.Command{
		Use:   "rename <node-id>",
		Short: "Replace a node's content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("content") {
				return writeErr(cmd, errors.New("missing --content"))
			}
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := env.svc.Rename(cmd.Context(), args[0], content)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOutMeta(cmd, app, nodeDetail{res.Node}, map[string]any{"changed": res.Changed})
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "New content")
	return cmd
}

func newNodesMoveCmd(app *App) *cobra.Command {
	var parent string
	var topLevel bool

	cmd := &cobra.Command{
		Use:   "move <node-id>",
		Short: "Reparent a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := CreateParent(parent)
			if (p == nil) == !topLevel {
				return writeErr(cmd, errors.New("provide exactly one of --parent or --top-level"))
			}
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			res, err := env.svc.Move(cmd.Context(), args[0], p)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOutMeta(cmd, app, nodeDetail{res.Node}, map[string]any{"changed": res.Changed})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "New parent node id")
	cmd.Flags().BoolVar(&topLevel, "top-level", false, "Move to the top level")
	return cmd
}

func newNodesArchiveCmd(app *App, archive bool) *cobra.Command {
	use, short := "archive <node-id>", "Archive a node (idempotent)"
	if !archive {
		use, short = "unarchive <node-id>", "Unarchive a node (idempotent)"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var res nodes.MutationResult
			if archive {
				res, err = env.svc.Archive(cmd.Context(), args[0])
			} else {
				res, err = env.svc.Unarchive(cmd.Context(), args[0])
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOutMeta(cmd, app, nodeDetail{res.Node}, map[string]any{"changed": res.Changed})
		},
	}
}

func newNodesRootCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Show (creating if needed) the session user's root node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			n, err := env.svc.EnsureRoot(cmd.Context(), env.sess.UserID)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, nodeDetail{n})
		},
	}
}

func newNodesVisibleCmd(app *App) *cobra.Command {
	var p visibleFlags

	cmd := &cobra.Command{
		Use:   "visible",
		Short: "Run the tree view's visible-node query once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadNodeEnv(cmd, app)
			if err != nil {
				return writeErr(cmd, err)
			}
			q := p.query(env.sess.UserID)
			out, err := query.Run(cmd.Context(), env.db, q, query.ScanNodes)
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOutMeta(cmd, app, nodeList(out), map[string]any{"query": q.Name})
		},
	}
	p.register(cmd)
	return cmd
}

type visibleFlags struct {
	selected string
	focused  bool
	archived bool
}

func (f *visibleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.selected, "selected", "", "Selected node id")
	cmd.Flags().BoolVar(&f.focused, "focused", false, "Focused view: only the selection's neighbourhood")
	cmd.Flags().BoolVar(&f.archived, "archived", false, "Include archived nodes")
}

func (f *visibleFlags) query(userID string) query.Query {
	return query.Visible(query.VisibleParams{
		UserID:         userID,
		SelectedNodeID: CreateParent(f.selected),
		FocusedView:    f.focused,
		ShowArchived:   f.archived,
	})
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
