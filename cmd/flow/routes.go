package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	getchain "sewing-flow/http-server/chain/get"
	upchain "sewing-flow/http-server/chain/update"
	applyflow "sewing-flow/http-server/flow/apply"
	computeflow "sewing-flow/http-server/flow/compute"
	getplan "sewing-flow/http-server/plan/get"
	getpriority "sewing-flow/http-server/priority/get"
	getsewers "sewing-flow/http-server/sewers/get"
	"sewing-flow/internal/config"
	"sewing-flow/internal/middleware/auth"
	"sewing-flow/internal/service/allocation"
	"sewing-flow/internal/service/chain"
	"sewing-flow/internal/service/priority"
	"sewing-flow/internal/storage/mysql"
)

func routes(cfg config.Config, log *slog.Logger, storage *mysql.Storage,
	allocService *allocation.Service, chainService *chain.Service, priorityService *priority.Service) *chi.Mux {

	router := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:8081", "http://localhost:5173"}, // Разрешаем запросы с фронтенда
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	router.Use(corsHandler.Handler)

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Use(auth.Bearer(cfg.AuthTokens))

	// Расчёт потока: чистая математика плюс проекция на период
	router.Post("/api/flow/compute", computeflow.ComputeFlow(log, allocService))
	// Применение плана: замещает план области, факт сохраняется
	router.Post("/api/flow/apply", applyflow.ApplyAllocation(log, allocService))

	// Дневной план области
	router.Get("/api/plan", getplan.GetPlanDays(log, storage))

	// Производственная цепочка
	router.Get("/api/chain/order/{orderID}", getchain.GetOrderChain(log, chainService))
	router.Post("/api/chain/operation/{id}/status", upchain.UpdateOperationStatus(log, chainService))
	router.Put("/api/chain/operation/{id}/variants", upchain.UpdateOperationVariants(log, chainService))

	// Триаж и узкие места
	router.Get("/api/priority", getpriority.GetPriority(log, priorityService))
	router.Get("/api/priority/bottlenecks", getpriority.GetBottleneckMap(log, priorityService))
	router.Get("/api/priority/recommendations", getpriority.GetRecommendations(log, priorityService))

	// Швеи с мощностью — источник цифры для резолвера
	router.Get("/api/sewers", getsewers.GetSewers(log, storage))

	return router
}
