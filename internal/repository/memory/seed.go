package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/portfolio/internal/model"
)

// Hasher turns a plaintext secret into its stored form.
// *auth.PasswordService satisfies it.
type Hasher interface {
	Hash(plaintext string) (string, error)
}

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(fmt.Sprintf("memory: bad seed date %q", s))
	}
	return t
}

type seedUser struct {
	user     model.User
	password string
}

// Demo accounts. The plaintext passwords are public on purpose: they are
// printed on the demo sign-in page.
func seedUsers() []seedUser {
	return []seedUser{
		{
			password: "admin123",
			user: model.User{
				ID: "user-1", Email: "admin@example.com", Role: model.RoleAdmin,
				FullName: "Admin User", Username: "admin", DisplayName: "Admin User",
				Bio:       "System administrator",
				AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=admin",
				CreatedAt: day("2024-01-01"),
			},
		},
		{
			password: "user123",
			user: model.User{
				ID: "user-2", Email: "john@example.com", Role: model.RoleUser,
				FullName: "John Doe", Username: "johndoe", DisplayName: "John Doe",
				Bio:       "Software engineer and tech enthusiast",
				AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=john",
				CreatedAt: day("2024-01-15"),
			},
		},
		{
			password: "user123",
			user: model.User{
				ID: "user-3", Email: "jane@example.com", Role: model.RoleUser,
				FullName: "Jane Smith", Username: "janesmith", DisplayName: "Jane Smith",
				Bio:       "Frontend developer and designer",
				AvatarURL: "https://api.dicebear.com/7.x/avataaars/svg?seed=jane",
				CreatedAt: day("2024-02-01"),
			},
		},
	}
}

func seedProjects() []model.Project {
	return []model.Project{
		{
			ID: "project-1", Slug: "ecommerce-platform", Title: "E-Commerce Platform",
			Description:     "A full-stack e-commerce platform with React, Node.js, and PostgreSQL",
			LongDescription: "A comprehensive e-commerce solution featuring user authentication, product management, shopping cart, payment integration, and an admin dashboard.",
			Image:           "https://images.unsplash.com/photo-1557821552-17105176677c?w=800",
			Technologies:    []string{"React", "Node.js", "PostgreSQL", "Stripe", "Redux", "Express"},
			Category:        "Full-Stack",
			GitHubURL:       "https://github.com/example/ecommerce",
			LiveURL:         "https://example-ecommerce.com",
			Featured:        true,
			CreatedAt:       day("2024-01-15"),
		},
		{
			ID: "project-2", Slug: "task-management-app", Title: "Task Management App",
			Description:     "A collaborative task management application with real-time updates",
			LongDescription: "Team collaboration tool with drag-and-drop task boards, real-time synchronization, team chat, and project analytics.",
			Image:           "https://images.unsplash.com/photo-1454165804606-c3d57bc86b40?w=800",
			Technologies:    []string{"React", "TypeScript", "Firebase", "Material-UI", "React DnD"},
			Category:        "Frontend",
			GitHubURL:       "https://github.com/example/task-manager",
			LiveURL:         "https://example-tasks.com",
			Featured:        true,
			CreatedAt:       day("2024-02-01"),
		},
		{
			ID: "project-3", Slug: "weather-dashboard", Title: "Weather Dashboard",
			Description:     "Real-time weather dashboard with interactive maps and forecasts",
			LongDescription: "A weather application featuring current conditions, 7-day forecasts, interactive weather maps, and location-based alerts.",
			Image:           "https://images.unsplash.com/photo-1592210454359-9043f067919b?w=800",
			Technologies:    []string{"React", "TypeScript", "OpenWeather API", "Recharts", "Tailwind CSS"},
			Category:        "Frontend",
			GitHubURL:       "https://github.com/example/weather",
			CreatedAt:       day("2024-02-15"),
		},
		{
			ID: "project-4", Slug: "social-media-api", Title: "Social Media API",
			Description:     "RESTful API for a social media platform with authentication and real-time features",
			LongDescription: "Scalable REST API featuring JWT authentication, user profiles, posts, comments, likes, a follow system, and real-time notifications over WebSockets.",
			Image:           "https://images.unsplash.com/photo-1611162617474-5b21e879e113?w=800",
			Technologies:    []string{"Node.js", "Express", "MongoDB", "JWT", "Socket.io", "Redis"},
			Category:        "Backend",
			GitHubURL:       "https://github.com/example/social-api",
			Featured:        true,
			CreatedAt:       day("2024-03-01"),
		},
		{
			ID: "project-5", Slug: "portfolio-generator", Title: "Portfolio Generator",
			Description:     "Automated portfolio website generator with customizable themes",
			LongDescription: "A SaaS application that generates portfolio websites from user input, with multiple themes, drag-and-drop customization and one-click deployment.",
			Image:           "https://images.unsplash.com/photo-1467232004584-a241de8bcf5d?w=800",
			Technologies:    []string{"Next.js", "TypeScript", "Tailwind CSS", "Vercel", "Prisma"},
			Category:        "Full-Stack",
			GitHubURL:       "https://github.com/example/portfolio-gen",
			LiveURL:         "https://portfolio-gen.com",
			CreatedAt:       day("2024-03-15"),
		},
		{
			ID: "project-6", Slug: "ai-chatbot", Title: "AI Chatbot Platform",
			Description:     "Intelligent chatbot platform powered by machine learning",
			LongDescription: "AI-powered chatbot platform with natural language processing, context awareness, multi-language support and messaging integrations.",
			Image:           "https://images.unsplash.com/photo-1531746790731-6c087fecd65a?w=800",
			Technologies:    []string{"Python", "TensorFlow", "React", "FastAPI", "PostgreSQL", "Docker"},
			Category:        "Full-Stack",
			GitHubURL:       "https://github.com/example/ai-chatbot",
			CreatedAt:       day("2024-04-01"),
		},
	}
}

func seedBlogs() []model.BlogPost {
	return []model.BlogPost{
		{
			ID: "blog-1", Slug: "getting-started-with-react", Title: "Getting Started with React in 2024",
			Excerpt:    "A comprehensive guide to starting your React journey with modern best practices and tools.",
			Content:    "# Getting Started with React in 2024\n\nReact remains one of the most popular frontend libraries. Start with Vite, learn components, props, state and hooks, and build up from there.",
			CoverImage: "https://images.unsplash.com/photo-1633356122544-f134324a6cee?w=800",
			AuthorID:   "user-2",
			Tags:       []string{"React", "JavaScript", "Web Development", "Tutorial"},
			Published:  true,
			ReadTime:   5,
			CreatedAt:  day("2024-01-10"),
		},
		{
			ID: "blog-2", Slug: "typescript-best-practices", Title: "TypeScript Best Practices for Large Projects",
			Excerpt:    "Learn how to leverage TypeScript effectively in large-scale applications.",
			Content:    "# TypeScript Best Practices\n\nEnable strict mode, prefer interfaces for object shapes, use discriminated unions and lean on type inference.",
			CoverImage: "https://images.unsplash.com/photo-1516116216624-53e697fedbea?w=800",
			AuthorID:   "user-2",
			Tags:       []string{"TypeScript", "Best Practices", "Programming"},
			Published:  true,
			ReadTime:   7,
			CreatedAt:  day("2024-02-05"),
		},
		{
			ID: "blog-3", Slug: "building-responsive-layouts", Title: "Building Responsive Layouts with Tailwind CSS",
			Excerpt:    "Master responsive design patterns using Tailwind CSS utility classes.",
			Content:    "# Responsive Layouts with Tailwind\n\nDesign mobile first, then layer breakpoints with the sm, md and lg prefixes.",
			CoverImage: "https://images.unsplash.com/photo-1507238691740-187a5b1d37b8?w=800",
			AuthorID:   "user-3",
			Tags:       []string{"CSS", "Tailwind", "Responsive Design", "Frontend"},
			Published:  true,
			ReadTime:   6,
			CreatedAt:  day("2024-03-01"),
		},
		{
			ID: "blog-4", Slug: "nodejs-microservices", Title: "Building Microservices with Node.js",
			Excerpt:    "A practical guide to designing and implementing microservices architecture.",
			Content:    "# Microservices with Node.js\n\nSplit by business capability, give each service its own data, and communicate over well-defined APIs or a message bus.",
			CoverImage: "https://images.unsplash.com/photo-1558494949-ef010cbdcc31?w=800",
			AuthorID:   "user-2",
			Tags:       []string{"Node.js", "Microservices", "Architecture", "Backend"},
			Published:  true,
			ReadTime:   8,
			CreatedAt:  day("2024-03-20"),
		},
	}
}

func seedComments() []model.Comment {
	c := func(id string, et model.EntityType, eid, uid, content, date string) model.Comment {
		return model.Comment{ID: id, EntityType: et, EntityID: eid, UserID: uid, Content: content, CreatedAt: day(date)}
	}
	return []model.Comment{
		c("comment-1", model.EntityProject, "project-1", "user-2", "Great project! The e-commerce features are really well implemented.", "2024-01-20"),
		c("comment-2", model.EntityProject, "project-1", "user-3", "Love the UI design. Very clean and modern!", "2024-01-21"),
		c("comment-3", model.EntityProject, "project-2", "user-2", "The real-time updates work flawlessly. Impressive work!", "2024-02-05"),
		c("comment-4", model.EntityBlog, "blog-1", "user-3", "Very helpful tutorial! Thanks for sharing.", "2024-01-12"),
		c("comment-5", model.EntityBlog, "blog-1", "user-1", "Great introduction to React. Well explained!", "2024-01-13"),
		c("comment-6", model.EntityBlog, "blog-2", "user-3", "These TypeScript tips are gold. Using them in my project now.", "2024-02-07"),
	}
}

func seedLikes() []model.Like {
	l := func(id string, et model.EntityType, eid, uid, date string) model.Like {
		return model.Like{ID: id, EntityType: et, EntityID: eid, UserID: uid, CreatedAt: day(date)}
	}
	return []model.Like{
		l("like-1", model.EntityProject, "project-1", "user-2", "2024-01-20"),
		l("like-2", model.EntityProject, "project-1", "user-3", "2024-01-21"),
		l("like-3", model.EntityProject, "project-2", "user-2", "2024-02-05"),
		l("like-4", model.EntityProject, "project-2", "user-3", "2024-02-06"),
		l("like-5", model.EntityProject, "project-4", "user-2", "2024-03-05"),
		l("like-6", model.EntityBlog, "blog-1", "user-3", "2024-01-12"),
		l("like-7", model.EntityBlog, "blog-1", "user-1", "2024-01-13"),
		l("like-8", model.EntityBlog, "blog-2", "user-3", "2024-02-07"),
	}
}

// Seed loads the demo data set. Passwords go through hasher, so no plaintext
// secret is ever stored.
func (s *Store) Seed(ctx context.Context, hasher Hasher) error {
	for _, su := range seedUsers() {
		hash, err := hasher.Hash(su.password)
		if err != nil {
			return fmt.Errorf("memory: seeding user %s: %w", su.user.ID, err)
		}
		u := su.user
		u.PasswordHash = hash
		if err := s.users.Insert(ctx, &u); err != nil {
			return fmt.Errorf("memory: seeding user %s: %w", u.ID, err)
		}
	}
	for _, p := range seedProjects() {
		if err := s.projects.Insert(ctx, &p); err != nil {
			return fmt.Errorf("memory: seeding project %s: %w", p.ID, err)
		}
	}
	for _, b := range seedBlogs() {
		if err := s.blogs.Insert(ctx, &b); err != nil {
			return fmt.Errorf("memory: seeding blog post %s: %w", b.ID, err)
		}
	}
	for _, c := range seedComments() {
		if err := s.comments.Insert(ctx, &c); err != nil {
			return fmt.Errorf("memory: seeding comment %s: %w", c.ID, err)
		}
	}
	for _, l := range seedLikes() {
		if err := s.likes.Insert(ctx, &l); err != nil {
			return fmt.Errorf("memory: seeding like %s: %w", l.ID, err)
		}
	}
	return nil
}
