package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cvector/cvec-go/internal/adapters/http/client"
	"github.com/cvector/cvec-go/internal/domain/model"
	"github.com/cvector/cvec-go/pkg/logger"
)

const agentPostsPath = "/api/agent_posts/add"

// AddAgentPost publishes post after validating it.
func (c *Client) AddAgentPost(ctx context.Context, post model.AgentPost) error {
	if err := post.Validate(); err != nil {
		return err
	}
	err := c.transport.DoJSON(ctx, client.Request{
		Method: http.MethodPost,
		Path:   agentPostsPath,
		JSON:   post,
	}, nil)
	if err != nil {
		return fmt.Errorf("add agent post: %w", err)
	}
	c.logger.Info(ctx, "agent post added",
		logger.String("author", post.Author),
		logger.Int("recommendations", len(post.Recommendations)))
	return nil
}
