package main

import (
	"context"
	"log"
	"os"

	_ "chatspace/api/swagger" // swagger docs

	"chatspace/internal/database"
	"chatspace/internal/handler"
	"chatspace/internal/middleware"
	"chatspace/internal/model"
	"chatspace/internal/policy"
	"chatspace/internal/repository"
	"chatspace/internal/service"
	"chatspace/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Chatspace API
// @version         1.0
// @description     Chat room backend: JWT auth, role/permission-gated rooms and messages, realtime channels.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := godotenv.Load("configs/.env"); err != nil {
		log.Println("No configs/.env file found or error loading it")
	}

	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	dbSslMode := os.Getenv("DB_SSLMODE")

	if dbHost == "" {
		dbHost = "localhost"
	}
	if dbPort == "" {
		dbPort = "5432"
	}
	if dbUser == "" {
		dbUser = "postgres"
	}
	if dbPassword == "" {
		dbPassword = "postgres"
	}
	if dbName == "" {
		dbName = "postgres"
	}
	if dbSslMode == "" {
		dbSslMode = "disable"
	}

	dsn := "postgres://" + dbUser + ":" + dbPassword + "@" + dbHost + ":" + dbPort + "/" + dbName + "?sslmode=" + dbSslMode

	db, err := database.NewConnection(dsn)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Println("Connected to PostgreSQL successfully.")

	middleware.InitAuthzMiddleware(db)

	// Set up dependencies (Repository -> Policy -> Service -> Handler)
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	memberRepo := repository.NewMembershipRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	txManager := repository.NewTransactionManager(db)

	roomPolicy := policy.NewRoomPolicy(memberRepo)

	channelService := service.NewChannelService(roomRepo, roomPolicy)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub(channelService)
	go wsHub.Run()

	roomService := service.NewRoomService(roomRepo, memberRepo, roomPolicy, txManager)
	messageService := service.NewMessageService(messageRepo, roomRepo, roleRepo, roomPolicy, wsHub)
	roleService := service.NewRoleService(roleRepo, userRepo)
	authService := service.NewAuthService(userRepo, roleRepo, roomService, db)

	// Seed built-in roles and permissions
	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Fatalf("Failed to seed roles and permissions: %v", err)
	}

	// Initialize Handlers
	authHandler := handler.NewAuthHandler(authService)
	roomHandler := handler.NewRoomHandler(roomService, userRepo)
	messageHandler := handler.NewMessageHandler(messageService, userRepo)
	roleHandler := handler.NewRoleHandler(roleService)
	channelHandler := handler.NewChannelHandler(channelService, userRepo)

	// Set up Gin Router
	router := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173"} // Frontend URL
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, func(ctx context.Context, id uuid.UUID) (*model.User, error) {
			return userRepo.GetByIDWithRoles(ctx, id)
		})
	})

	// Register API Routes
	api := router.Group("/api/v1")
	authHandler.RegisterRoutes(api)
	roomHandler.RegisterRoutes(api)
	messageHandler.RegisterRoutes(api)
	roleHandler.RegisterRoutes(api)
	channelHandler.RegisterRoutes(api)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server listening on :%s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
